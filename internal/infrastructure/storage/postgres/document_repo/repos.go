package document_repo

import (
	"konditer/internal/domain/documents"
	"konditer/internal/domain/documents/adjustment"
	"konditer/internal/domain/documents/production"
	"konditer/internal/domain/documents/purchase"
	"konditer/internal/domain/documents/sale"
	"konditer/internal/domain/documents/transfer"
	"konditer/internal/infrastructure/storage/postgres"
)

const (
	purchasesTable        = "doc_purchases"
	purchaseLinesTable    = "doc_purchase_lines"
	purchaseExpensesTable = "doc_purchase_expenses"

	transfersTable     = "doc_transfers"
	transferLinesTable = "doc_transfer_lines"

	adjustmentsTable     = "doc_adjustments"
	adjustmentLinesTable = "doc_adjustment_lines"

	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"

	productionTable       = "doc_production_orders"
	productionLinesTable  = "doc_production_lines"
	productionStagesTable = "doc_production_stages"
)

// PurchaseRepo persists purchases with lines and expenses.
type PurchaseRepo struct {
	*BaseDocumentRepo[*purchase.Purchase]
}

func NewPurchaseRepo(txm *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(txm,
			purchasesTable, "purchase",
			postgres.ExtractDBColumns[purchase.Purchase](),
			[]string{"warehouse_id"},
			func() *purchase.Purchase { return &purchase.Purchase{} },
			postgres.Children(purchaseLinesTable, "purchase_id", "line_no",
				func(p *purchase.Purchase) []purchase.Line { return p.Lines },
				func(p *purchase.Purchase, ls []purchase.Line) { p.Lines = ls }),
			postgres.Children(purchaseExpensesTable, "purchase_id", "line_no",
				func(p *purchase.Purchase) []purchase.Expense { return p.Expenses },
				func(p *purchase.Purchase, es []purchase.Expense) { p.Expenses = es }),
		),
	}
}

// TransferRepo persists transfers.
type TransferRepo struct {
	*BaseDocumentRepo[*transfer.Transfer]
}

func NewTransferRepo(txm *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(txm,
			transfersTable, "transfer",
			postgres.ExtractDBColumns[transfer.Transfer](),
			[]string{"source_warehouse_id", "destination_warehouse_id"},
			func() *transfer.Transfer { return &transfer.Transfer{} },
			postgres.Children(transferLinesTable, "transfer_id", "line_no",
				func(t *transfer.Transfer) []transfer.Line { return t.Lines },
				func(t *transfer.Transfer, ls []transfer.Line) { t.Lines = ls }),
		),
	}
}

// AdjustmentRepo persists quantity adjustments.
type AdjustmentRepo struct {
	*BaseDocumentRepo[*adjustment.Adjustment]
}

func NewAdjustmentRepo(txm *postgres.TxManager) *AdjustmentRepo {
	return &AdjustmentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(txm,
			adjustmentsTable, "adjustment",
			postgres.ExtractDBColumns[adjustment.Adjustment](),
			[]string{"warehouse_id"},
			func() *adjustment.Adjustment { return &adjustment.Adjustment{} },
			postgres.Children(adjustmentLinesTable, "adjustment_id", "line_no",
				func(a *adjustment.Adjustment) []adjustment.Line { return a.Lines },
				func(a *adjustment.Adjustment, ls []adjustment.Line) { a.Lines = ls }),
		),
	}
}

// SaleRepo persists sales.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
}

func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(txm,
			salesTable, "sale",
			postgres.ExtractDBColumns[sale.Sale](),
			[]string{"warehouse_id"},
			func() *sale.Sale { return &sale.Sale{} },
			postgres.Children(saleLinesTable, "sale_id", "line_no",
				func(s *sale.Sale) []sale.Line { return s.Lines },
				func(s *sale.Sale, ls []sale.Line) { s.Lines = ls }),
		),
	}
}

// ProductionRepo persists production orders with material lines and stages.
type ProductionRepo struct {
	*BaseDocumentRepo[*production.Order]
}

func NewProductionRepo(txm *postgres.TxManager) *ProductionRepo {
	return &ProductionRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(txm,
			productionTable, "production order",
			postgres.ExtractDBColumns[production.Order](),
			[]string{"source_warehouse_id", "output_warehouse_id"},
			func() *production.Order { return &production.Order{} },
			postgres.Children(productionLinesTable, "order_id", "line_no",
				func(o *production.Order) []production.Line { return o.Lines },
				func(o *production.Order, ls []production.Line) { o.Lines = ls }),
			postgres.Children(productionStagesTable, "order_id", "stage_number",
				func(o *production.Order) []production.Stage { return o.Stages },
				func(o *production.Order, ss []production.Stage) { o.Stages = ss }),
		),
	}
}

var (
	_ documents.Repository[*purchase.Purchase]     = (*PurchaseRepo)(nil)
	_ documents.Repository[*transfer.Transfer]     = (*TransferRepo)(nil)
	_ documents.Repository[*adjustment.Adjustment] = (*AdjustmentRepo)(nil)
	_ documents.Repository[*sale.Sale]             = (*SaleRepo)(nil)
	_ documents.Repository[*production.Order]      = (*ProductionRepo)(nil)
)
