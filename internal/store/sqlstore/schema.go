package sqlstore

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS produtos (
		id BIGSERIAL PRIMARY KEY,
		categoria VARCHAR(40) NOT NULL,
		marca VARCHAR(120) NOT NULL,
		detalhe VARCHAR(200) NOT NULL,
		preco_compra NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (preco_compra >= 0),
		preco_venda NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (preco_venda >= 0),
		quantidade_estoque INTEGER NOT NULL DEFAULT 0 CHECK (quantidade_estoque >= 0),
		vencimento DATE NULL,
		versao INTEGER NOT NULL DEFAULT 1,
		UNIQUE (categoria, marca, detalhe)
	)`,
	`CREATE TABLE IF NOT EXISTS vendas (
		id BIGSERIAL PRIMARY KEY,
		produto_id BIGINT NULL REFERENCES produtos(id) ON DELETE SET NULL,
		data_venda DATE NOT NULL,
		categoria VARCHAR(40) NOT NULL,
		produto VARCHAR(200) NOT NULL,
		marca VARCHAR(120) NOT NULL,
		preco_compra NUMERIC(12,2) NOT NULL,
		preco_venda NUMERIC(12,2) NOT NULL,
		quantidade_vendida INTEGER NOT NULL CHECK (quantidade_vendida > 0),
		forma_pagamento VARCHAR(20) NOT NULL,
		lucro NUMERIC(12,2) NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vendas_categoria ON vendas (categoria)`,
	`CREATE TABLE IF NOT EXISTS reposicoes (
		id BIGSERIAL PRIMARY KEY,
		produto_id BIGINT NOT NULL REFERENCES produtos(id),
		quantidade INTEGER NOT NULL CHECK (quantidade > 0),
		data_entrada DATE NOT NULL,
		vencimento DATE NULL
	)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS produtos (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		categoria VARCHAR(40) NOT NULL,
		marca VARCHAR(120) NOT NULL,
		detalhe VARCHAR(200) NOT NULL,
		preco_compra DECIMAL(12,2) NOT NULL DEFAULT 0,
		preco_venda DECIMAL(12,2) NOT NULL DEFAULT 0,
		quantidade_estoque INT NOT NULL DEFAULT 0,
		vencimento DATE NULL,
		versao INT NOT NULL DEFAULT 1,
		UNIQUE KEY uq_produto (categoria, marca, detalhe)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS vendas (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		produto_id BIGINT NULL,
		data_venda DATE NOT NULL,
		categoria VARCHAR(40) NOT NULL,
		produto VARCHAR(200) NOT NULL,
		marca VARCHAR(120) NOT NULL,
		preco_compra DECIMAL(12,2) NOT NULL,
		preco_venda DECIMAL(12,2) NOT NULL,
		quantidade_vendida INT NOT NULL,
		forma_pagamento VARCHAR(20) NOT NULL,
		lucro DECIMAL(12,2) NULL,
		KEY idx_vendas_categoria (categoria),
		CONSTRAINT fk_vendas_produto FOREIGN KEY (produto_id) REFERENCES produtos(id) ON DELETE SET NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS reposicoes (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		produto_id BIGINT NOT NULL,
		quantidade INT NOT NULL,
		data_entrada DATE NOT NULL,
		vencimento DATE NULL,
		CONSTRAINT fk_reposicoes_produto FOREIGN KEY (produto_id) REFERENCES produtos(id)
	) ENGINE=InnoDB`,
}

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	statements := postgresSchema
	if s.dialect == MySQL {
		statements = mysqlSchema
	}
	for i, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
