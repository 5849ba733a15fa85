package entity

import (
	"context"
	"time"

	"konditer/internal/core/apperror"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusConfirmed  Status = "confirmed"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsApplied reports whether a document in this status has its movements in effect.
func (s Status) IsApplied() bool {
	return s == StatusConfirmed || s == StatusCompleted
}

func (s Status) String() string { return string(s) }

// DocumentType discriminates the document variants that move stock.
type DocumentType string

const (
	DocumentTypePurchase   DocumentType = "purchase"
	DocumentTypeProduction DocumentType = "production"
	DocumentTypeTransfer   DocumentType = "transfer"
	DocumentTypeAdjustment DocumentType = "adjustment"
	DocumentTypeSale       DocumentType = "sale"
)

// DocumentTypes lists every known document type.
var DocumentTypes = []DocumentType{
	DocumentTypePurchase,
	DocumentTypeProduction,
	DocumentTypeTransfer,
	DocumentTypeAdjustment,
	DocumentTypeSale,
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t DocumentType) String() string { return string(t) }

// NumberPrefix is the prefix of human-readable document numbers.
func (t DocumentType) NumberPrefix() string {
	switch t {
	case DocumentTypePurchase:
		return "P"
	case DocumentTypeProduction:
		return "PR"
	case DocumentTypeTransfer:
		return "OT"
	case DocumentTypeAdjustment:
		return "QLD"
	case DocumentTypeSale:
		return "S"
	}
	return "DOC"
}

// NumberPadWidth is the zero-padded width of the daily sequence.
func (t DocumentType) NumberPadWidth() int {
	if t == DocumentTypeProduction {
		return 3
	}
	return 4
}

// Document is the header shared by every stock document.
type Document struct {
	BaseDocument

	// Number is PREFIX-YYYYMMDD-NNN, sequential per day and type
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	Status  Status `db:"status" json:"status"`
	Comment string `db:"comment" json:"comment,omitempty"`

	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmedAt,omitempty"`
	ConfirmedBy string     `db:"confirmed_by" json:"confirmedBy,omitempty"`
}

// NewDocument creates a draft document dated now.
func NewDocument(now time.Time, actor string) Document {
	return Document{
		BaseDocument: NewBaseDocument(now, actor),
		Date:         now,
		Status:       StatusDraft,
	}
}

// Validate implements Validatable.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	if !d.Status.Valid() {
		return apperror.NewValidation("unknown status").WithDetail("status", d.Status)
	}
	return nil
}

// GetNumber returns the document number.
func (d *Document) GetNumber() string { return d.Number }

// GetStatus returns the current status.
func (d *Document) GetStatus() Status { return d.Status }

// CanModify rejects edits outside draft.
func (d *Document) CanModify() error {
	if d.Status != StatusDraft {
		return apperror.NewStateConflict("document", d.ID, d.Status.String(), "modify")
	}
	return nil
}

// MarkApplied flips the document into an applied status.
func (d *Document) MarkApplied(status Status, at time.Time, actor string) {
	d.Status = status
	d.ConfirmedAt = &at
	d.ConfirmedBy = actor
	d.Touch(at, actor)
}

// MarkDraft returns the document to draft after a revert.
func (d *Document) MarkDraft(at time.Time, actor string) {
	d.Status = StatusDraft
	d.ConfirmedAt = nil
	d.ConfirmedBy = ""
	d.Touch(at, actor)
}

// MarkCancelled moves the document to cancelled.
func (d *Document) MarkCancelled(at time.Time, actor string) {
	d.Status = StatusCancelled
	d.Touch(at, actor)
}

// SetNumber assigns the human-readable number.
func (d *Document) SetNumber(number string) { d.Number = number }

// GetDate returns the business date.
func (d *Document) GetDate() time.Time { return d.Date }
