package types

// Column names guaranteed by the gastos-diretos source table.
const (
	ColumnAno             = "ano"
	ColumnMes             = "mes"
	ColumnValor           = "valor"
	ColumnNomeOrgao       = "nome_orgao"
	ColumnNomeFavorecido  = "nome_favorecido"
	ColumnNomeAcao        = "nome_acao"
	ColumnNomePrograma    = "nome_programa"
	ColumnNomeFuncao      = "nome_funcao"
	ColumnNomeGrupo       = "nome_grupo_despesa"
	ColumnDataPagamento   = "data_pagamento"
	ColumnTotalGasto      = "total_gasto"
)

var (
	// PartitionColumns drive the hive layout of every layer.
	PartitionColumns = []string{ColumnAno, ColumnMes}

	// CriticalColumns must carry no nulls for a record set to pass the gate.
	CriticalColumns = []string{ColumnAno, ColumnMes, ColumnNomeOrgao, ColumnNomeFavorecido}

	// TextColumns are standardized (uppercase, trimmed) in the Silver layer.
	TextColumns = []string{
		ColumnNomeOrgao,
		ColumnNomeFavorecido,
		ColumnNomeAcao,
		ColumnNomePrograma,
		ColumnNomeFuncao,
		ColumnNomeGrupo,
	}
)

// Page is the decoded form of one raw API page.
type Page struct {
	Results []map[string]any `json:"results"`
	Next    *string          `json:"next"`
}
