package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/utils"
)

// ChangeEvent is published after every successful write and every sync.
type ChangeEvent struct {
	Type   string    `json:"type"`
	Entity string    `json:"entity"`
	ID     string    `json:"id,omitempty"`
	Actor  string    `json:"actor,omitempty"`
	At     time.Time `json:"at"`
}

type actorKey struct{}

// WithActor attaches the e-mail of the user performing a write.
func WithActor(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, actorKey{}, email)
}

func actorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return "system"
}

// DefaultSettings apply when the Settings sheet has no value for a name.
var DefaultSettings = map[string]string{
	models.SettingCurrency:            "INR",
	models.SettingCompanyName:         "Arneor Labs",
	models.SettingFinancialYearStart:  "April",
	models.SettingTaxRate:             "18",
	models.SettingLowBalanceThreshold: "50000",
	models.SettingAutoRefreshInterval: "30",
}

// CategoryCatalog lists the categories a transaction may use per type. An
// empty list accepts any non-empty category.
type CategoryCatalog struct {
	Income  []string
	Expense []string
}

func (c CategoryCatalog) allows(typ models.TransactionType, category string) bool {
	list := c.Expense
	if typ == models.TransactionIncome {
		list = c.Income
	}
	if len(list) == 0 {
		return true
	}
	for _, name := range list {
		if name == category {
			return true
		}
	}
	return false
}

type LedgerOptions struct {
	Catalog      CategoryCatalog
	Cache        *Cache
	Retry        *RetryPolicy
	Audit        *AuditService
	Location     *time.Location
	Now          func() time.Time
	SeedPartners []models.SeedPartner
}

// LedgerService maps the spreadsheet to typed records. Reads go through the
// shared cache; writes are serialized, applied in order (row first, then
// partner balance) and clear the whole cache.
//
// Transaction and transfer IDs are the collection length plus one. Deleting
// a row or running two writers against the same sheet can therefore reuse
// an ID.
type LedgerService struct {
	store SheetStore
	cache *Cache
	retry RetryPolicy
	audit *AuditService
	loc   *time.Location
	clock func() time.Time
	seed  []models.SeedPartner
	cats  CategoryCatalog

	writeMu sync.Mutex

	subMu       sync.RWMutex
	subscribers []func(ChangeEvent)
}

func NewLedgerService(store SheetStore, opts LedgerOptions) *LedgerService {
	s := &LedgerService{
		store: store,
		cache: opts.Cache,
		audit: opts.Audit,
		loc:   opts.Location,
		clock: opts.Now,
		seed:  opts.SeedPartners,
		cats:  opts.Catalog,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.cache == nil {
		s.cache = NewCache(DefaultCacheTTL, s.clock)
	}
	if opts.Retry != nil {
		s.retry = *opts.Retry
	} else {
		s.retry = DefaultRetryPolicy()
	}
	return s
}

// Now is the service clock in the business time zone.
func (s *LedgerService) Now() time.Time {
	return s.clock().In(s.loc)
}

func (s *LedgerService) Location() *time.Location {
	return s.loc
}

// ClearCache drops every cached collection.
func (s *LedgerService) ClearCache() {
	s.cache.Clear()
}

// Subscribe registers fn for change events.
func (s *LedgerService) Subscribe(fn func(ChangeEvent)) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

func (s *LedgerService) publish(ctx context.Context, typ, entity, id string) {
	ev := ChangeEvent{Type: typ, Entity: entity, ID: id, Actor: actorFrom(ctx), At: s.Now()}
	s.subMu.RLock()
	subs := append([]func(ChangeEvent){}, s.subscribers...)
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (s *LedgerService) recordAudit(ctx context.Context, action, entity, id string, changes interface{}) {
	actor := actorFrom(ctx)
	utils.LogLedgerAction(action+" "+entity, id, actor)
	if err := s.audit.Record(ctx, action, entity, id, actor, changes); err != nil {
		utils.SafeWarn("Audit trail not written for %s %s: %v", action, entity, err)
	}
}

// ============================================================================
// REMOTE CALLS
// ============================================================================

func (s *LedgerService) read(ctx context.Context, rng string) ([][]interface{}, error) {
	var rows [][]interface{}
	err := s.retry.Do(ctx, "read", func(ctx context.Context) error {
		var err error
		rows, err = s.store.ReadRange(ctx, rng)
		return err
	})
	return rows, err
}

func (s *LedgerService) appendRow(ctx context.Context, rng string, row []interface{}) error {
	return s.retry.Do(ctx, "append", func(ctx context.Context) error {
		return s.store.AppendRows(ctx, rng, [][]interface{}{row})
	})
}

func (s *LedgerService) updateRow(ctx context.Context, rng string, row []interface{}) error {
	return s.retry.Do(ctx, "update", func(ctx context.Context) error {
		return s.store.UpdateRange(ctx, rng, [][]interface{}{row})
	})
}

func (s *LedgerService) deleteRow(ctx context.Context, schema Schema, row int) error {
	return s.retry.Do(ctx, "delete", func(ctx context.Context) error {
		return s.store.DeleteRows(ctx, schema.Sheet, int64(row+1), int64(row+2))
	})
}

// collection reads one sheet through the cache. The returned slice is a copy.
func collection[T any](ctx context.Context, s *LedgerService, schema Schema) ([]T, error) {
	if v, ok := s.cache.Get(schema.Sheet); ok {
		if recs, ok := v.([]T); ok {
			return append([]T(nil), recs...), nil
		}
	}

	rows, err := s.read(ctx, schema.Range())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", schema.Sheet, err)
	}
	recs, err := Decode[T](schema, rows)
	if err != nil {
		return nil, err
	}
	s.cache.Set(schema.Sheet, recs)
	return append([]T(nil), recs...), nil
}

// ============================================================================
// READS
// ============================================================================

func (s *LedgerService) Partners(ctx context.Context) ([]models.Partner, error) {
	return collection[models.Partner](ctx, s, PartnersSchema)
}

// Transactions returns every row, placeholders included.
func (s *LedgerService) Transactions(ctx context.Context) ([]models.Transaction, error) {
	return collection[models.Transaction](ctx, s, TransactionsSchema)
}

func (s *LedgerService) Budgets(ctx context.Context) ([]models.Budget, error) {
	return collection[models.Budget](ctx, s, BudgetsSchema)
}

func (s *LedgerService) Transfers(ctx context.Context) ([]models.InterPartnerTransfer, error) {
	return collection[models.InterPartnerTransfer](ctx, s, TransfersSchema)
}

func (s *LedgerService) MonthlySummaries(ctx context.Context) ([]models.MonthlySummary, error) {
	return collection[models.MonthlySummary](ctx, s, MonthlySummarySchema)
}

func (s *LedgerService) Settings(ctx context.Context) ([]models.Setting, error) {
	return collection[models.Setting](ctx, s, SettingsSchema)
}

// FetchAll refreshes every collection from the spreadsheet.
func (s *LedgerService) FetchAll(ctx context.Context) (*models.Snapshot, error) {
	s.cache.Clear()
	start := time.Now()

	snap := &models.Snapshot{}
	var err error
	if snap.Partners, err = s.Partners(ctx); err != nil {
		return nil, err
	}
	if snap.Transactions, err = s.Transactions(ctx); err != nil {
		return nil, err
	}
	if snap.Budgets, err = s.Budgets(ctx); err != nil {
		return nil, err
	}
	if snap.Transfers, err = s.Transfers(ctx); err != nil {
		return nil, err
	}
	if snap.MonthlySummaries, err = s.MonthlySummaries(ctx); err != nil {
		return nil, err
	}
	if snap.Settings, err = s.Settings(ctx); err != nil {
		return nil, err
	}
	snap.LastSync = s.Now()

	utils.LogSync(len(AllSchemas), time.Since(start).String())
	return snap, nil
}

// Setting returns the first value stored for name, or its default.
func (s *LedgerService) Setting(ctx context.Context, name string) (string, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return "", err
	}
	return settingValue(settings, name), nil
}

// EffectiveSettings merges stored values over the defaults.
func (s *LedgerService) EffectiveSettings(ctx context.Context) (map[string]string, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(DefaultSettings)+len(settings))
	for k, v := range DefaultSettings {
		out[k] = v
	}
	for _, st := range settings {
		if st.Name != "" {
			out[st.Name] = settingValue(settings, st.Name)
		}
	}
	return out, nil
}

func settingValue(settings []models.Setting, name string) string {
	for _, st := range settings {
		if st.Name == name {
			if st.Value == "" {
				break
			}
			return st.Value
		}
	}
	return DefaultSettings[name]
}

// DecimalSetting parses a numeric setting, falling back to the default.
func (s *LedgerService) DecimalSetting(ctx context.Context, name string) (decimal.Decimal, error) {
	raw, err := s.Setting(ctx, name)
	if err != nil {
		return decimal.Zero, err
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(raw)); err == nil {
		return d, nil
	}
	return parseDecimal(DefaultSettings[name]), nil
}

// ============================================================================
// PARTNERS
// ============================================================================

func findPartner(partners []models.Partner, id string) (models.Partner, bool) {
	for _, p := range partners {
		if p.ID != "" && p.ID == id {
			return p, true
		}
	}
	return models.Partner{}, false
}

func (s *LedgerService) UpdatePartner(ctx context.Context, id string, req models.UpdatePartnerRequest) (*models.Partner, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, &ValidationError{Fields: map[string]string{"partner_name": "Partner name is required"}}
	}

	partners, err := s.Partners(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := findPartner(partners, id)
	if !ok {
		return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if err := s.writePartner(ctx, &p); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "update", "partner", id, req)
	s.publish(ctx, "updated", "partner", id)
	return &p, nil
}

// AdjustPartnerBalance adds delta to the partner's running balance.
func (s *LedgerService) AdjustPartnerBalance(ctx context.Context, id string, delta decimal.Decimal) (*models.Partner, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	p, err := s.adjustBalance(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "adjust", "partner", id, map[string]string{"delta": delta.String()})
	s.publish(ctx, "updated", "partner", id)
	return p, nil
}

// adjustBalance reads the partner fresh and rewrites its row. Caller holds
// writeMu.
func (s *LedgerService) adjustBalance(ctx context.Context, id string, delta decimal.Decimal) (*models.Partner, error) {
	s.cache.Clear()
	partners, err := s.Partners(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := findPartner(partners, id)
	if !ok {
		return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	p.CurrentBalance = p.CurrentBalance.Add(delta)
	if err := s.writePartner(ctx, &p); err != nil {
		return nil, err
	}
	utils.LogBalanceChange(id, delta)
	return &p, nil
}

func (s *LedgerService) writePartner(ctx context.Context, p *models.Partner) error {
	p.LastUpdated = s.Now().Format(time.RFC3339)
	row, err := Encode(PartnersSchema, *p)
	if err != nil {
		return err
	}
	defer s.cache.Clear()
	if err := s.updateRow(ctx, PartnersSchema.RowRange(p.Row), row); err != nil {
		return fmt.Errorf("failed to update partner %s: %w", p.ID, err)
	}
	return nil
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

func nextID(prefix string, count int) string {
	return fmt.Sprintf("%s%04d", prefix, count+1)
}

func findTransaction(txs []models.Transaction, id string) (models.Transaction, bool) {
	for _, t := range txs {
		if t.Persisted() && t.ID == id {
			return t, true
		}
	}
	return models.Transaction{}, false
}

func (s *LedgerService) validateTransaction(req models.TransactionRequest, partners []models.Partner) error {
	verr := &ValidationError{}
	if strings.TrimSpace(req.Date) == "" {
		verr.add("date", "Date is required")
	} else if _, err := utils.ParseSheetDate(req.Date, s.loc); err != nil {
		verr.add("date", "Invalid date")
	}
	if !req.Type.Valid() {
		verr.add("type", "Type must be Income or Expense")
	}
	if category := strings.TrimSpace(req.Category); category == "" {
		verr.add("category", "Category is required")
	} else if req.Type.Valid() && !s.cats.allows(req.Type, category) {
		verr.add("category", fmt.Sprintf("Unknown %s category", strings.ToLower(string(req.Type))))
	}
	if !req.Amount.IsPositive() {
		verr.add("amount", "Amount must be positive")
	}
	if strings.TrimSpace(req.PartnerAccount) == "" {
		verr.add("partner_account", "Partner is required")
	}
	if err := verr.orNil(); err != nil {
		return err
	}
	if _, ok := findPartner(partners, req.PartnerAccount); !ok {
		return fmt.Errorf("partner %s: %w", req.PartnerAccount, ErrNotFound)
	}
	return nil
}

// AddTransaction appends the row, then moves the partner balance by the
// signed amount. A failed balance write is returned as is; the appended row
// stays.
func (s *LedgerService) AddTransaction(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	partners, err := s.Partners(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validateTransaction(req, partners); err != nil {
		return nil, err
	}
	txs, err := s.Transactions(ctx)
	if err != nil {
		return nil, err
	}

	tx := models.Transaction{
		Row:            len(txs),
		ID:             nextID("TXN", len(txs)),
		Date:           strings.TrimSpace(req.Date),
		Type:           req.Type,
		Category:       strings.TrimSpace(req.Category),
		Amount:         req.Amount,
		PartnerAccount: req.PartnerAccount,
		Description:    req.Description,
		PaymentMethod:  req.PaymentMethod,
		Tags:           req.Tags,
		AddedBy:        req.AddedBy,
		Timestamp:      s.Now().Format(time.RFC3339Nano),
	}
	if tx.AddedBy == "" {
		tx.AddedBy = actorFrom(ctx)
	}
	row, err := Encode(TransactionsSchema, tx)
	if err != nil {
		return nil, err
	}
	if err := s.appendRow(ctx, TransactionsSchema.Range(), row); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	s.cache.Clear()

	if _, err := s.adjustBalance(ctx, tx.PartnerAccount, tx.SignedAmount()); err != nil {
		return &tx, fmt.Errorf("transaction %s saved but balance update failed: %w", tx.ID, err)
	}

	s.recordAudit(ctx, "create", "transaction", tx.ID, tx)
	s.publish(ctx, "created", "transaction", tx.ID)
	return &tx, nil
}

// UpdateTransaction rewrites the row and reconciles balances: the old
// effect is reversed on the old partner and the new one applied to the new
// partner.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, req models.TransactionRequest) (*models.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	partners, err := s.Partners(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	old, ok := findTransaction(txs, id)
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err := s.validateTransaction(req, partners); err != nil {
		return nil, err
	}
	if old.PartnerAccount != "" && old.PartnerAccount != req.PartnerAccount {
		if _, ok := findPartner(partners, old.PartnerAccount); !ok {
			return nil, fmt.Errorf("previous partner %s of transaction %s: %w", old.PartnerAccount, id, ErrNotFound)
		}
	}

	tx := old
	tx.Date = strings.TrimSpace(req.Date)
	tx.Type = req.Type
	tx.Category = strings.TrimSpace(req.Category)
	tx.Amount = req.Amount
	tx.PartnerAccount = req.PartnerAccount
	tx.Description = req.Description
	tx.PaymentMethod = req.PaymentMethod
	tx.Tags = req.Tags
	if req.AddedBy != "" {
		tx.AddedBy = req.AddedBy
	}

	row, err := Encode(TransactionsSchema, tx)
	if err != nil {
		return nil, err
	}
	if err := s.updateRow(ctx, TransactionsSchema.RowRange(tx.Row), row); err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	s.cache.Clear()

	if old.PartnerAccount == tx.PartnerAccount {
		if delta := tx.SignedAmount().Sub(old.SignedAmount()); !delta.IsZero() {
			if _, err := s.adjustBalance(ctx, tx.PartnerAccount, delta); err != nil {
				return &tx, fmt.Errorf("transaction %s saved but balance update failed: %w", id, err)
			}
		}
	} else {
		if old.PartnerAccount != "" {
			if _, err := s.adjustBalance(ctx, old.PartnerAccount, old.SignedAmount().Neg()); err != nil {
				return &tx, fmt.Errorf("transaction %s saved but balance update failed: %w", id, err)
			}
		}
		if _, err := s.adjustBalance(ctx, tx.PartnerAccount, tx.SignedAmount()); err != nil {
			return &tx, fmt.Errorf("transaction %s saved but balance update failed: %w", id, err)
		}
	}

	s.recordAudit(ctx, "update", "transaction", id, map[string]models.Transaction{"before": old, "after": tx})
	s.publish(ctx, "updated", "transaction", id)
	return &tx, nil
}

// DeleteTransaction reverses the balance effect, then removes the row.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	txs, err := s.Transactions(ctx)
	if err != nil {
		return err
	}
	tx, ok := findTransaction(txs, id)
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	if tx.PartnerAccount != "" {
		if _, err := s.adjustBalance(ctx, tx.PartnerAccount, tx.SignedAmount().Neg()); err != nil {
			return fmt.Errorf("failed to reverse balance for %s: %w", id, err)
		}
	}
	err = s.deleteRow(ctx, TransactionsSchema, tx.Row)
	s.cache.Clear()
	if err != nil {
		return fmt.Errorf("balance reversed but transaction %s was not deleted: %w", id, err)
	}

	s.recordAudit(ctx, "delete", "transaction", id, tx)
	s.publish(ctx, "deleted", "transaction", id)
	return nil
}

// ============================================================================
// BUDGETS
// ============================================================================

func findBudget(budgets []models.Budget, category string) (models.Budget, bool) {
	for _, b := range budgets {
		if b.Category != "" && b.Category == category {
			return b, true
		}
	}
	return models.Budget{}, false
}

func validateBudget(req models.BudgetRequest) error {
	verr := &ValidationError{}
	if strings.TrimSpace(req.Category) == "" {
		verr.add("category", "Category is required")
	}
	if !req.MonthlyBudget.IsPositive() {
		verr.add("monthly_budget", "Monthly budget must be positive")
	}
	if req.QuarterlyBudget.IsNegative() {
		verr.add("quarterly_budget", "Quarterly budget cannot be negative")
	}
	if req.YearlyBudget.IsNegative() {
		verr.add("yearly_budget", "Yearly budget cannot be negative")
	}
	return verr.orNil()
}

// AddBudget creates a category ceiling. Missing quarterly and yearly values
// are derived from the monthly one.
func (s *LedgerService) AddBudget(ctx context.Context, req models.BudgetRequest) (*models.Budget, error) {
	if err := validateBudget(req); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	budgets, err := s.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(req.Category)
	if _, exists := findBudget(budgets, category); exists {
		return nil, fmt.Errorf("budget %s: %w", category, ErrConflict)
	}

	b := models.Budget{
		Row:             len(budgets),
		Category:        category,
		MonthlyBudget:   req.MonthlyBudget,
		QuarterlyBudget: req.QuarterlyBudget,
		YearlyBudget:    req.YearlyBudget,
		Remaining:       req.MonthlyBudget,
	}
	if b.QuarterlyBudget.IsZero() {
		b.QuarterlyBudget = b.MonthlyBudget.Mul(decimal.NewFromInt(3))
	}
	if b.YearlyBudget.IsZero() {
		b.YearlyBudget = b.MonthlyBudget.Mul(decimal.NewFromInt(12))
	}
	row, err := Encode(BudgetsSchema, b)
	if err != nil {
		return nil, err
	}
	err = s.appendRow(ctx, BudgetsSchema.Range(), row)
	s.cache.Clear()
	if err != nil {
		return nil, fmt.Errorf("failed to append budget: %w", err)
	}

	s.recordAudit(ctx, "create", "budget", category, b)
	s.publish(ctx, "created", "budget", category)
	return &b, nil
}

// UpdateBudget edits the ceilings of category. Renaming onto another
// existing category is a conflict.
func (s *LedgerService) UpdateBudget(ctx context.Context, category string, req models.BudgetRequest) (*models.Budget, error) {
	if err := validateBudget(req); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	budgets, err := s.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	b, ok := findBudget(budgets, category)
	if !ok {
		return nil, fmt.Errorf("budget %s: %w", category, ErrNotFound)
	}
	newCategory := strings.TrimSpace(req.Category)
	if newCategory != category {
		if _, taken := findBudget(budgets, newCategory); taken {
			return nil, fmt.Errorf("budget %s: %w", newCategory, ErrConflict)
		}
	}

	txs, err := s.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	b.Category = newCategory
	b.MonthlyBudget = req.MonthlyBudget
	b.QuarterlyBudget = req.QuarterlyBudget
	b.YearlyBudget = req.YearlyBudget
	usage := BudgetUsage([]models.Budget{b}, txs, s.Now())
	b.CurrentSpent = usage.Budgets[0].CurrentSpent
	b.Remaining = usage.Budgets[0].Remaining

	row, err := Encode(BudgetsSchema, b)
	if err != nil {
		return nil, err
	}
	err = s.updateRow(ctx, BudgetsSchema.RowRange(b.Row), row)
	s.cache.Clear()
	if err != nil {
		return nil, fmt.Errorf("failed to update budget %s: %w", category, err)
	}

	s.recordAudit(ctx, "update", "budget", category, b)
	s.publish(ctx, "updated", "budget", b.Category)
	return &b, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, category string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	budgets, err := s.Budgets(ctx)
	if err != nil {
		return err
	}
	b, ok := findBudget(budgets, category)
	if !ok {
		return fmt.Errorf("budget %s: %w", category, ErrNotFound)
	}
	err = s.deleteRow(ctx, BudgetsSchema, b.Row)
	s.cache.Clear()
	if err != nil {
		return fmt.Errorf("failed to delete budget %s: %w", category, err)
	}

	s.recordAudit(ctx, "delete", "budget", category, b)
	s.publish(ctx, "deleted", "budget", category)
	return nil
}

// ============================================================================
// TRANSFERS
// ============================================================================

// AddTransfer records the transfer, then debits the source and credits the
// destination, in that order.
func (s *LedgerService) AddTransfer(ctx context.Context, req models.TransferRequest) (*models.InterPartnerTransfer, error) {
	verr := &ValidationError{}
	if req.FromPartner == "" {
		verr.add("from_partner", "Source partner is required")
	}
	if req.ToPartner == "" {
		verr.add("to_partner", "Destination partner is required")
	}
	if req.FromPartner != "" && req.FromPartner == req.ToPartner {
		verr.add("to_partner", "Cannot transfer to the same partner")
	}
	if !req.Amount.IsPositive() {
		verr.add("amount", "Amount must be positive")
	}
	if req.Date != "" {
		if _, err := utils.ParseSheetDate(req.Date, s.loc); err != nil {
			verr.add("date", "Invalid date")
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	partners, err := s.Partners(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range []string{req.FromPartner, req.ToPartner} {
		if _, ok := findPartner(partners, id); !ok {
			return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
		}
	}
	transfers, err := s.Transfers(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	tr := models.InterPartnerTransfer{
		Row:         len(transfers),
		ID:          nextID("TRF", len(transfers)),
		Date:        req.Date,
		FromPartner: req.FromPartner,
		ToPartner:   req.ToPartner,
		Amount:      req.Amount,
		Purpose:     req.Purpose,
		Timestamp:   now.Format(time.RFC3339Nano),
	}
	if tr.Date == "" {
		tr.Date = now.Format("2006-01-02")
	}
	row, err := Encode(TransfersSchema, tr)
	if err != nil {
		return nil, err
	}
	if err := s.appendRow(ctx, TransfersSchema.Range(), row); err != nil {
		s.cache.Clear()
		return nil, fmt.Errorf("failed to append transfer: %w", err)
	}
	s.cache.Clear()

	if _, err := s.adjustBalance(ctx, tr.FromPartner, tr.Amount.Neg()); err != nil {
		return &tr, fmt.Errorf("transfer %s saved but debit failed: %w", tr.ID, err)
	}
	if _, err := s.adjustBalance(ctx, tr.ToPartner, tr.Amount); err != nil {
		return &tr, fmt.Errorf("transfer %s saved but credit failed: %w", tr.ID, err)
	}

	s.recordAudit(ctx, "create", "transfer", tr.ID, tr)
	s.publish(ctx, "created", "transfer", tr.ID)
	return &tr, nil
}

// ============================================================================
// SETTINGS & SUMMARIES
// ============================================================================

// UpdateSetting overwrites the first row named name, or appends one.
func (s *LedgerService) UpdateSetting(ctx context.Context, name, value string) (*models.Setting, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Fields: map[string]string{"setting_name": "Setting name is required"}}
	}
	if err := validateSetting(name, value); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	st := models.Setting{Row: -1, Name: name, Value: value, LastModified: s.Now().Format(time.RFC3339)}
	for _, existing := range settings {
		if existing.Name == name {
			st.Row = existing.Row
			break
		}
	}

	if st.Row >= 0 {
		err = s.updateRow(ctx, SettingsSchema.CellRange(st.Row, 1, 2), []interface{}{st.Value, st.LastModified})
	} else {
		st.Row = len(settings)
		var row []interface{}
		if row, err = Encode(SettingsSchema, st); err == nil {
			err = s.appendRow(ctx, SettingsSchema.Range(), row)
		}
	}
	s.cache.Clear()
	if err != nil {
		return nil, fmt.Errorf("failed to save setting %s: %w", name, err)
	}

	s.recordAudit(ctx, "update", "setting", name, map[string]string{"value": value})
	s.publish(ctx, "updated", "setting", name)
	return &st, nil
}

func validateSetting(name, value string) error {
	switch name {
	case models.SettingTaxRate, models.SettingLowBalanceThreshold:
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || d.IsNegative() {
			return &ValidationError{Fields: map[string]string{"value": "Must be a non-negative number"}}
		}
	case models.SettingAutoRefreshInterval:
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || !d.IsPositive() || !d.IsInteger() {
			return &ValidationError{Fields: map[string]string{"value": "Must be a whole number of seconds"}}
		}
	}
	return nil
}

// RecordMonthlySummary stores the current month's totals in the
// Monthly_Summary sheet, replacing an existing row for the same month.
func (s *LedgerService) RecordMonthlySummary(ctx context.Context, notes string) (*models.MonthlySummary, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()

	partners, err := s.Partners(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := s.MonthlySummaries(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	m := DashboardMetrics(partners, txs, now)
	sum := models.MonthlySummary{
		Row:           len(summaries),
		Month:         now.Month().String(),
		Year:          now.Year(),
		TotalRevenue:  m.ThisMonthRevenue,
		TotalExpenses: m.ThisMonthExpenses,
		NetProfitLoss: m.ThisMonthProfitLoss,
		CashBalance:   m.TotalCashAvailable,
		BurnRate:      m.BurnRate.Round(2),
		Notes:         notes,
	}
	existing := -1
	for _, ms := range summaries {
		if ms.Month == sum.Month && ms.Year == sum.Year {
			existing = ms.Row
			break
		}
	}

	row, err := Encode(MonthlySummarySchema, sum)
	if err != nil {
		return nil, err
	}
	if existing >= 0 {
		sum.Row = existing
		err = s.updateRow(ctx, MonthlySummarySchema.RowRange(existing), row)
	} else {
		err = s.appendRow(ctx, MonthlySummarySchema.Range(), row)
	}
	s.cache.Clear()
	if err != nil {
		return nil, fmt.Errorf("failed to save monthly summary: %w", err)
	}

	id := fmt.Sprintf("%s %d", sum.Month, sum.Year)
	s.recordAudit(ctx, "snapshot", "monthly_summary", id, sum)
	s.publish(ctx, "updated", "monthly_summary", id)
	return &sum, nil
}

// ============================================================================
// PROVISIONING
// ============================================================================

// InitializeSheets creates missing sheets with their header row and seeds
// the partners when the Partners sheet is empty. It returns the sheets it
// created.
func (s *LedgerService) InitializeSheets(ctx context.Context) ([]string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.cache.Clear()
	defer s.cache.Clear()

	var existing []string
	err := s.retry.Do(ctx, "list sheets", func(ctx context.Context) error {
		var err error
		existing, err = s.store.ListSheets(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, title := range existing {
		present[title] = true
	}

	created := []string{}
	for _, schema := range AllSchemas {
		if present[schema.Sheet] {
			continue
		}
		err := s.retry.Do(ctx, "add sheet", func(ctx context.Context) error {
			return s.store.AddSheet(ctx, schema.Sheet)
		})
		if err != nil {
			return created, fmt.Errorf("failed to create sheet %s: %w", schema.Sheet, err)
		}
		if err := s.updateRow(ctx, schema.Sheet+"!A1", schema.Header()); err != nil {
			return created, fmt.Errorf("failed to write header of %s: %w", schema.Sheet, err)
		}
		created = append(created, schema.Sheet)
		utils.SafeInfo("📄 Created sheet %s", schema.Sheet)
	}

	partners, err := s.Partners(ctx)
	if err != nil {
		return created, err
	}
	if len(partners) == 0 && len(s.seed) > 0 {
		stamp := s.Now().Format(time.RFC3339)
		for _, sp := range s.seed {
			p := models.Partner{ID: sp.ID, Name: sp.Name, CurrentBalance: decimal.Zero, Email: sp.Email, LastUpdated: stamp}
			row, err := Encode(PartnersSchema, p)
			if err != nil {
				return created, err
			}
			if err := s.appendRow(ctx, PartnersSchema.Range(), row); err != nil {
				return created, fmt.Errorf("failed to seed partner %s: %w", sp.ID, err)
			}
		}
		utils.SafeInfo("👥 Seeded %d partners", len(s.seed))
	}

	if len(created) > 0 {
		s.recordAudit(ctx, "initialize", "spreadsheet", "", created)
		s.publish(ctx, "initialized", "spreadsheet", "")
	}
	return created, nil
}
