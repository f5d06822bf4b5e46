// Package invoice creates master invoices and carves child invoices out of
// their remaining quantities.
//
// A child invoice goes through validate → compute → number → persist. The
// first three steps touch nothing; the last runs in one transaction that locks
// the master row and its items, re-checks the selection against the locked
// quantities, writes the child, reserves quantities, audits and queues the
// domain event. Any failure before commit leaves no reservation behind.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicing-backend/internal/apperror"
	"invoicing-backend/internal/audit"
	"invoicing-backend/internal/database"
	"invoicing-backend/internal/events"
	"invoicing-backend/internal/ledger"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/numbering"
	"invoicing-backend/internal/proration"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actor is the authenticated user on whose behalf a mutation runs.
type Actor struct {
	UserID   uint
	UserName string
}

func (a Actor) createdBy() *uint {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

type ItemInput struct {
	Description string
	ProductID   *uint
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

type CreateMasterInput struct {
	ClientName      string
	SourceType      models.InvoiceSource
	SourceRef       string
	IssueDate       time.Time
	DueDate         *time.Time
	Items           []ItemInput
	Discount        decimal.Decimal
	Rates           proration.Rates
	ShippingCharges decimal.Decimal
	Notes           string
}

type SelectionLine struct {
	ItemID   uint
	Quantity decimal.Decimal
}

type ChildMetadata struct {
	MilestoneDescription string
	DeliveryNotes        string
	Notes                string
	IssueDate            time.Time
	DueDate              *time.Time
}

type CreateChildInput struct {
	Selection []SelectionLine
	Metadata  ChildMetadata
}

// Preview is the unrounded and rounded proration of a selection.
type Preview struct {
	MasterInvoiceID uint
	Breakdown       proration.Breakdown
	Rounded         proration.Breakdown
	Descriptions    map[uint]string
}

type Service struct {
	db       *gorm.DB
	numberer numbering.Numberer
	outbox   *events.Outbox
	now      func() time.Time
}

func NewService(db *gorm.DB, numberer numbering.Numberer, outbox *events.Outbox) *Service {
	return &Service{
		db:       db,
		numberer: numberer,
		outbox:   outbox,
		now:      time.Now,
	}
}

// CreateMasterInvoice prices the item list 1:1 and stores it as a new master
// with nothing fulfilled yet.
func (s *Service) CreateMasterInvoice(ctx context.Context, in CreateMasterInput, actor Actor) (*models.Invoice, error) {
	log := logger.WithComponent("invoice.service")

	if err := validateMasterInput(in); err != nil {
		log.Debug().Err(err).Msg("Master fatura reddedildi")
		return nil, err
	}

	priced := make([]proration.MasterItem, len(in.Items))
	for i, it := range in.Items {
		priced[i] = proration.MasterItem{TotalQuantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	breakdown := proration.ComputeMaster(priced, in.Discount, in.Rates, in.ShippingCharges).Rounded()

	issueDate := in.IssueDate
	if issueDate.IsZero() {
		issueDate = s.now()
	}
	number, err := s.nextNumber(ctx, issueDate)
	if err != nil {
		return nil, err
	}

	sourceType := in.SourceType
	if sourceType == "" {
		sourceType = models.InvoiceSourceManual
	}

	inv := models.Invoice{
		InvoiceNumber:   number,
		IsMaster:        true,
		Status:          models.InvoiceStatusDraft,
		ClientName:      strings.TrimSpace(in.ClientName),
		SourceType:      sourceType,
		SourceRef:       strings.TrimSpace(in.SourceRef),
		IssueDate:       issueDate,
		DueDate:         in.DueDate,
		Subtotal:        breakdown.Subtotal,
		Discount:        breakdown.Discount,
		CGST:            breakdown.CGST,
		SGST:            breakdown.SGST,
		IGST:            breakdown.IGST,
		ShippingCharges: breakdown.ShippingCharges,
		Total:           breakdown.Total,
		PaidAmount:      decimal.Zero,
		RemainingAmount: breakdown.Total,
		Notes:           in.Notes,
		CreatedByID:     actor.createdBy(),
	}
	for _, it := range in.Items {
		inv.Items = append(inv.Items, models.InvoiceItem{
			Description:       strings.TrimSpace(it.Description),
			ProductID:         it.ProductID,
			TotalQuantity:     it.Quantity,
			FulfilledQuantity: decimal.Zero,
			UnitPrice:         it.UnitPrice,
		})
	}

	err = database.InTx(ctx, s.db, "create master invoice", func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			return apperror.Persistence("create master invoice", err)
		}
		if err := audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "invoice",
			EntityID:    inv.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Master fatura oluşturuldu: %s", inv.InvoiceNumber),
			After:       toInvoiceResponse(&inv),
		}); err != nil {
			return apperror.Persistence("audit", err)
		}
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			Type:        events.EventMasterInvoiceCreated,
			AggregateID: inv.ID,
			Payload: events.MasterInvoiceCreatedPayload{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				Total:         inv.Total.StringFixed(proration.MoneyPlaces),
				ItemCount:     len(inv.Items),
			},
		}); err != nil {
			return apperror.Persistence("publish event", err)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("invoice_number", number).Msg("Master fatura kaydedilemedi")
		return nil, err
	}

	log.Info().
		Uint("invoice_id", inv.ID).
		Str("invoice_number", inv.InvoiceNumber).
		Str("total", inv.Total.StringFixed(proration.MoneyPlaces)).
		Int("items", len(inv.Items)).
		Msg("Master fatura oluşturuldu")
	return &inv, nil
}

func validateMasterInput(in CreateMasterInput) error {
	if len(in.Items) == 0 {
		return apperror.Invalid("items", "en az bir kalem gerekli")
	}
	subtotal := decimal.Zero
	for i, it := range in.Items {
		if strings.TrimSpace(it.Description) == "" {
			return apperror.Invalid("items", fmt.Sprintf("%d. kalem için açıklama zorunlu", i+1))
		}
		if !it.Quantity.IsPositive() {
			return &apperror.ValidationError{
				Err:   apperror.ErrInvalidQuantity,
				Field: "items",
				Msg:   fmt.Sprintf("%d. kalem için miktar sıfırdan büyük olmalı", i+1),
			}
		}
		if !proration.FitsUnitPlaces(it.Quantity) {
			return &apperror.ValidationError{
				Err:   apperror.ErrInvalidQuantity,
				Field: "items",
				Msg:   fmt.Sprintf("%d. kalem için miktar en fazla %d ondalık basamak içerebilir", i+1, proration.UnitPlaces),
			}
		}
		if it.UnitPrice.IsNegative() {
			return apperror.Invalid("items", fmt.Sprintf("%d. kalem için birim fiyat negatif olamaz", i+1))
		}
		if !proration.FitsUnitPlaces(it.UnitPrice) {
			return apperror.Invalid("items", fmt.Sprintf("%d. kalem için birim fiyat en fazla %d ondalık basamak içerebilir", i+1, proration.UnitPlaces))
		}
		subtotal = subtotal.Add(it.Quantity.Mul(it.UnitPrice))
	}
	if in.Discount.IsNegative() {
		return apperror.Invalid("discount", "indirim negatif olamaz")
	}
	if in.Discount.GreaterThan(subtotal) {
		return apperror.Invalid("discount", "indirim ara toplamı aşamaz")
	}
	if in.Rates.CGST.IsNegative() || in.Rates.SGST.IsNegative() || in.Rates.IGST.IsNegative() {
		return apperror.Invalid("tax", "vergi oranları negatif olamaz")
	}
	if in.ShippingCharges.IsNegative() {
		return apperror.Invalid("shipping_charges", "kargo ücreti negatif olamaz")
	}
	return nil
}

// PreviewChildInvoice validates a selection and returns its proration without
// numbering or writing anything.
func (s *Service) PreviewChildInvoice(ctx context.Context, masterID uint, selection []SelectionLine) (*Preview, error) {
	master, err := loadMaster(ctx, s.db, masterID, false)
	if err != nil {
		return nil, err
	}
	breakdown, err := validateSelection(master, selection)
	if err != nil {
		return nil, err
	}
	descriptions := make(map[uint]string, len(master.Items))
	for _, it := range master.Items {
		descriptions[it.ID] = it.Description
	}
	return &Preview{
		MasterInvoiceID: master.ID,
		Breakdown:       breakdown,
		Rounded:         breakdown.Rounded(),
		Descriptions:    descriptions,
	}, nil
}

// CreateChildInvoice carves a child invoice out of the master's remaining
// quantities.
func (s *Service) CreateChildInvoice(ctx context.Context, masterID uint, in CreateChildInput, actor Actor) (*models.Invoice, error) {
	log := logger.WithComponent("invoice.service")

	// Validating: unlocked snapshot, so a rejection costs no lock and no number.
	master, err := loadMaster(ctx, s.db, masterID, false)
	if err != nil {
		return nil, err
	}
	if _, err := validateSelection(master, in.Selection); err != nil {
		log.Debug().Err(err).Uint("master_id", masterID).Msg("Alt fatura seçimi reddedildi")
		return nil, err
	}

	issueDate := in.Metadata.IssueDate
	if issueDate.IsZero() {
		issueDate = s.now()
	}
	number, err := s.nextNumber(ctx, issueDate)
	if err != nil {
		log.Warn().Err(err).Uint("master_id", masterID).Msg("Alt fatura numarası alınamadı")
		return nil, err
	}

	var child models.Invoice
	err = database.InTx(ctx, s.db, "create child invoice", func(tx *gorm.DB) error {
		locked, err := loadMaster(ctx, tx, masterID, true)
		if err != nil {
			return err
		}
		// Re-check against the locked rows; another request may have reserved
		// since the snapshot was read.
		breakdown, err := validateSelection(locked, in.Selection)
		if err != nil {
			return err
		}
		rounded := breakdown.Rounded()

		itemsByID := make(map[uint]*models.InvoiceItem, len(locked.Items))
		for i := range locked.Items {
			itemsByID[locked.Items[i].ID] = &locked.Items[i]
		}

		child = models.Invoice{
			InvoiceNumber:        number,
			MasterInvoiceID:      &locked.ID,
			IsMaster:             false,
			Status:               models.InvoiceStatusDraft,
			ClientName:           locked.ClientName,
			SourceType:           locked.SourceType,
			SourceRef:            locked.SourceRef,
			IssueDate:            issueDate,
			DueDate:              in.Metadata.DueDate,
			Subtotal:             rounded.Subtotal,
			Discount:             rounded.Discount,
			CGST:                 rounded.CGST,
			SGST:                 rounded.SGST,
			IGST:                 rounded.IGST,
			ShippingCharges:      rounded.ShippingCharges,
			Total:                rounded.Total,
			PaidAmount:           decimal.Zero,
			RemainingAmount:      rounded.Total,
			MilestoneDescription: strings.TrimSpace(in.Metadata.MilestoneDescription),
			DeliveryNotes:        strings.TrimSpace(in.Metadata.DeliveryNotes),
			Notes:                in.Metadata.Notes,
			CreatedByID:          actor.createdBy(),
		}
		for _, line := range rounded.Lines {
			child.ChildItems = append(child.ChildItems, models.ChildInvoiceItem{
				MasterItemID: line.ItemID,
				Description:  itemsByID[line.ItemID].Description,
				Quantity:     line.Quantity,
				UnitPrice:    line.UnitPrice,
				Amount:       line.Amount,
			})
		}
		if err := tx.Create(&child).Error; err != nil {
			return apperror.Persistence("create child invoice", err)
		}

		moved := make([]events.ItemQuantity, 0, len(rounded.Lines))
		for _, line := range rounded.Lines {
			if err := ledger.Reserve(ctx, tx, itemsByID[line.ItemID], line.Quantity); err != nil {
				return err
			}
			moved = append(moved, events.ItemQuantity{MasterItemID: line.ItemID, Quantity: line.Quantity.String()})
		}

		if err := audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "invoice",
			EntityID:    child.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Alt fatura oluşturuldu: %s (master %s)", child.InvoiceNumber, locked.InvoiceNumber),
			After:       toInvoiceResponse(&child),
		}); err != nil {
			return apperror.Persistence("audit", err)
		}

		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			Type:        events.EventChildInvoiceCreated,
			AggregateID: child.ID,
			Payload: events.ChildInvoiceCreatedPayload{
				ChildInvoiceID:  child.ID,
				MasterInvoiceID: locked.ID,
				InvoiceNumber:   child.InvoiceNumber,
				Total:           child.Total.StringFixed(proration.MoneyPlaces),
				Items:           moved,
			},
		}); err != nil {
			return apperror.Persistence("publish event", err)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Uint("master_id", masterID).Str("invoice_number", number).Msg("Alt fatura kaydedilemedi")
		return nil, err
	}

	log.Info().
		Uint("master_id", masterID).
		Uint("child_id", child.ID).
		Str("invoice_number", child.InvoiceNumber).
		Str("total", child.Total.StringFixed(proration.MoneyPlaces)).
		Msg("Alt fatura oluşturuldu")
	return &child, nil
}

// VoidChildInvoice gives a child's quantities back to its master. Children
// that already carry payments cannot be voided.
func (s *Service) VoidChildInvoice(ctx context.Context, childID uint, reason string, actor Actor) (*models.Invoice, error) {
	log := logger.WithComponent("invoice.service")

	var peek models.Invoice
	if err := s.db.WithContext(ctx).First(&peek, childID).Error; err != nil {
		return nil, notFoundOr("load invoice", err)
	}
	if peek.IsMaster || peek.MasterInvoiceID == nil {
		return nil, apperror.ErrNotChild
	}
	masterID := *peek.MasterInvoiceID

	var child models.Invoice
	err := database.InTx(ctx, s.db, "void child invoice", func(tx *gorm.DB) error {
		// master ve kalemler CreateChildInvoice ile aynı sırada, alt fatura en son
		master, err := loadMaster(ctx, tx, masterID, true)
		if err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("ChildItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			First(&child, childID).Error; err != nil {
			return notFoundOr("lock child invoice", err)
		}
		if child.Status == models.InvoiceStatusVoid {
			return apperror.ErrInvoiceVoid
		}
		var payments int64
		if err := tx.Model(&models.Payment{}).Where("invoice_id = ?", child.ID).Count(&payments).Error; err != nil {
			return apperror.Persistence("count payments", err)
		}
		if payments > 0 || child.PaidAmount.IsPositive() {
			return apperror.ErrHasPayments
		}

		before := toInvoiceResponse(&child)

		itemsByID := make(map[uint]*models.InvoiceItem, len(master.Items))
		for i := range master.Items {
			itemsByID[master.Items[i].ID] = &master.Items[i]
		}
		released := make([]events.ItemQuantity, 0, len(child.ChildItems))
		for _, ci := range child.ChildItems {
			item, ok := itemsByID[ci.MasterItemID]
			if !ok {
				return fmt.Errorf("%w: alt fatura kalemi %d master kalemi %d ile eşleşmiyor",
					apperror.ErrConsistency, ci.ID, ci.MasterItemID)
			}
			if err := ledger.Release(ctx, tx, item, ci.Quantity); err != nil {
				return err
			}
			released = append(released, events.ItemQuantity{MasterItemID: ci.MasterItemID, Quantity: ci.Quantity.String()})
		}

		notes := child.Notes
		if r := strings.TrimSpace(reason); r != "" {
			notes = strings.TrimSpace(notes + "\nİptal: " + r)
		}
		if err := tx.Model(&child).Updates(map[string]any{
			"status": models.InvoiceStatusVoid,
			"notes":  notes,
		}).Error; err != nil {
			return apperror.Persistence("void child invoice", err)
		}
		child.Status = models.InvoiceStatusVoid
		child.Notes = notes

		if err := audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.UserName,
			EntityType:  "invoice",
			EntityID:    child.ID,
			Action:      models.AuditActionVoid,
			Description: fmt.Sprintf("Alt fatura iptal edildi: %s", child.InvoiceNumber),
			Before:      before,
			After:       toInvoiceResponse(&child),
		}); err != nil {
			return apperror.Persistence("audit", err)
		}

		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			Type:        events.EventChildInvoiceVoided,
			AggregateID: child.ID,
			Payload: events.ChildInvoiceVoidedPayload{
				ChildInvoiceID:  child.ID,
				MasterInvoiceID: master.ID,
				Released:        released,
			},
		}); err != nil {
			return apperror.Persistence("publish event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("child_id", child.ID).Uint("master_id", masterID).Msg("Alt fatura iptal edildi")
	return &child, nil
}

// GetInvoice loads an invoice with its lines and payments.
func (s *Service) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("ChildItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&inv, id).Error
	if err != nil {
		return nil, notFoundOr("load invoice", err)
	}
	return &inv, nil
}

// ListChildInvoices returns the children of a master in creation order.
func (s *Service) ListChildInvoices(ctx context.Context, masterID uint) ([]models.Invoice, error) {
	if _, err := loadMaster(ctx, s.db, masterID, false); err != nil {
		return nil, err
	}
	var children []models.Invoice
	if err := s.db.WithContext(ctx).
		Preload("ChildItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("master_invoice_id = ?", masterID).
		Order("id ASC").
		Find(&children).Error; err != nil {
		return nil, apperror.Persistence("list child invoices", err)
	}
	return children, nil
}

// ItemBalances reports total, fulfilled and remaining quantity per master item.
func (s *Service) ItemBalances(ctx context.Context, masterID uint) ([]ledger.Balance, error) {
	if _, err := loadMaster(ctx, s.db, masterID, false); err != nil {
		return nil, err
	}
	return ledger.Balances(ctx, s.db, masterID)
}

func (s *Service) nextNumber(ctx context.Context, issued time.Time) (string, error) {
	number, err := s.numberer.NextNumber(ctx, numbering.DocumentTypeInvoice, issued.Year())
	if err != nil {
		return "", &apperror.NumberingServiceError{DocumentType: numbering.DocumentTypeInvoice, Err: err}
	}
	if strings.TrimSpace(number) == "" {
		return "", &apperror.NumberingServiceError{
			DocumentType: numbering.DocumentTypeInvoice,
			Err:          errors.New("boş numara döndü"),
		}
	}
	return number, nil
}

// loadMaster reads a master invoice with its items ordered by id. With lock set
// the invoice row and item rows stay locked until db's transaction ends.
func loadMaster(ctx context.Context, db *gorm.DB, id uint, lock bool) (*models.Invoice, error) {
	q := db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var inv models.Invoice
	if err := q.First(&inv, id).Error; err != nil {
		return nil, notFoundOr("load master invoice", err)
	}
	if !inv.IsMaster {
		return nil, apperror.ErrNotMaster
	}
	if inv.Status == models.InvoiceStatusVoid {
		return nil, apperror.ErrInvoiceVoid
	}

	if lock {
		items, err := ledger.LockItems(ctx, db, inv.ID)
		if err != nil {
			return nil, err
		}
		inv.Items = items
	} else if err := db.WithContext(ctx).Where("invoice_id = ?", inv.ID).Order("id ASC").Find(&inv.Items).Error; err != nil {
		return nil, apperror.Persistence("load items", err)
	}
	return &inv, nil
}

// validateSelection runs the Validating and Computing steps against master's
// current quantities.
func validateSelection(master *models.Invoice, selection []SelectionLine) (proration.Breakdown, error) {
	if len(selection) == 0 {
		return proration.Breakdown{}, &apperror.EmptySelectionError{}
	}

	sel := make([]proration.Selected, len(selection))
	for i, line := range selection {
		sel[i] = proration.Selected{ItemID: line.ItemID, Quantity: line.Quantity}
	}
	breakdown, err := proration.Compute(referenceOf(master), sel)
	if err != nil {
		return proration.Breakdown{}, err
	}
	if len(breakdown.Lines) == 0 {
		return proration.Breakdown{}, &apperror.EmptySelectionError{}
	}

	byID := make(map[uint]models.InvoiceItem, len(master.Items))
	for _, it := range master.Items {
		byID[it.ID] = it
	}
	for _, line := range breakdown.Lines {
		if err := ledger.CheckReserve(byID[line.ItemID], line.Quantity); err != nil {
			return proration.Breakdown{}, err
		}
	}
	return breakdown, nil
}

func referenceOf(master *models.Invoice) proration.Reference {
	items := make([]proration.MasterItem, len(master.Items))
	for i, it := range master.Items {
		items[i] = proration.MasterItem{ID: it.ID, TotalQuantity: it.TotalQuantity, UnitPrice: it.UnitPrice}
	}
	return proration.Reference{
		Items:           items,
		Discount:        master.Discount,
		CGST:            master.CGST,
		SGST:            master.SGST,
		IGST:            master.IGST,
		ShippingCharges: master.ShippingCharges,
	}
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}
	return apperror.Persistence(op, err)
}
