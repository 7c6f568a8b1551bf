package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maternacare/maternacare/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const billCols = `id, patient_id, facility_id, bill_number, bill_date, due_date,
	subtotal, tax_amount, discount_amount, total_amount, paid_amount, balance_amount,
	status, notes, created_by, created_at, updated_at`

func (r *repoPG) CreateBill(ctx context.Context, b *Bill) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill (
			id, patient_id, facility_id, bill_number, bill_date, due_date,
			subtotal, tax_amount, discount_amount, total_amount, paid_amount, balance_amount,
			status, notes, created_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		b.ID, b.PatientID, b.FacilityID, b.BillNumber, b.BillDate, b.DueDate,
		b.Subtotal, b.TaxAmount, b.DiscountAmount, b.TotalAmount, b.PaidAmount, b.BalanceAmount,
		b.Status, b.Notes, b.CreatedBy,
	)
	return err
}

func (r *repoPG) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bill WHERE id = $1`, id))
}

func (r *repoPG) GetBillForUpdate(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bill WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) FindOpenBill(ctx context.Context, patientID, facilityID uuid.UUID) (*Bill, error) {
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, `
		SELECT `+billCols+` FROM bill
		WHERE patient_id = $1 AND facility_id = $2
		  AND status IN ('draft','sent','partially_paid','overdue')
		ORDER BY bill_date
		LIMIT 1
		FOR UPDATE`, patientID, facilityID))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoOpenBill
	}
	return b, err
}

func (r *repoPG) UpdateBill(ctx context.Context, b *Bill) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE bill SET
			due_date=$2, subtotal=$3, tax_amount=$4, discount_amount=$5,
			total_amount=$6, paid_amount=$7, balance_amount=$8,
			status=$9, notes=$10, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.DueDate, b.Subtotal, b.TaxAmount, b.DiscountAmount,
		b.TotalAmount, b.PaidAmount, b.BalanceAmount,
		b.Status, b.Notes,
	)
	return err
}

func (r *repoPG) ListBills(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Bill, int, error) {
	where := `WHERE ($1::uuid IS NULL OR patient_id = $1) AND ($2 = '' OR status = $2)`
	var pid interface{}
	if patientID != uuid.Nil {
		pid = patientID
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bill `+where, pid, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+billCols+` FROM bill `+where+` ORDER BY bill_date DESC LIMIT $3 OFFSET $4`,
		pid, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bills, err := collectBills(rows)
	return bills, total, err
}

func (r *repoPG) ListPatientBills(ctx context.Context, patientID, facilityID uuid.UUID) ([]*Bill, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+billCols+` FROM bill
		WHERE patient_id = $1 AND facility_id = $2
		ORDER BY bill_date`, patientID, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBills(rows)
}

const itemCols = `id, bill_id, kind, catalog_item_id, admission_id, service_name, description,
	quantity, unit_price, total_price, created_at, updated_at`

func (r *repoPG) CreateItem(ctx context.Context, item *BillItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill_item (id, bill_id, kind, catalog_item_id, admission_id, service_name, description, quantity, unit_price, total_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		item.ID, item.BillID, item.Kind, item.CatalogItemID, item.AdmissionID, item.ServiceName, item.Description,
		item.Quantity, item.UnitPrice, item.TotalPrice,
	)
	return err
}

func (r *repoPG) UpdateItem(ctx context.Context, item *BillItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE bill_item SET
			service_name=$2, description=$3, quantity=$4, unit_price=$5, total_price=$6, updated_at=NOW()
		WHERE id = $1`,
		item.ID, item.ServiceName, item.Description, item.Quantity, item.UnitPrice, item.TotalPrice,
	)
	return err
}

func (r *repoPG) ListItems(ctx context.Context, billID uuid.UUID) ([]*BillItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM bill_item WHERE bill_id = $1 ORDER BY created_at`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*BillItem
	for rows.Next() {
		var it BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.Kind, &it.CatalogItemID, &it.AdmissionID, &it.ServiceName, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, nil
}

func (r *repoPG) FindRoomItem(ctx context.Context, admissionID uuid.UUID) (*BillItem, error) {
	var it BillItem
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM bill_item WHERE admission_id = $1 AND kind = $2`, admissionID, ItemKindRoomAccrual).
		Scan(&it.ID, &it.BillID, &it.Kind, &it.CatalogItemID, &it.AdmissionID, &it.ServiceName, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

const paymentCols = `id, bill_id, payment_number, payment_date, amount, method,
	reference_number, notes, received_by, created_at`

func (r *repoPG) CreatePayment(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, bill_id, payment_number, payment_date, amount, method, reference_number, notes, received_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.BillID, p.PaymentNumber, p.PaymentDate, p.Amount, p.Method, p.ReferenceNumber, p.Notes, p.ReceivedBy,
	)
	return err
}

func (r *repoPG) ListPayments(ctx context.Context, billID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+paymentCols+` FROM payment WHERE bill_id = $1 ORDER BY payment_date DESC, created_at DESC`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BillID, &p.PaymentNumber, &p.PaymentDate, &p.Amount, &p.Method,
			&p.ReferenceNumber, &p.Notes, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, nil
}

func (r *repoPG) NextBillNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('bill_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("BILL-%06d", n), nil
}

func (r *repoPG) NextPaymentNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('payment_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY-%06d", n), nil
}

// LockLedger takes a transaction-scoped advisory lock keyed on the patient
// and facility pair, so two concurrent find-or-create calls cannot both
// conclude there is no open bill. The partial unique index on open bills
// backstops this.
func (r *repoPG) LockLedger(ctx context.Context, patientID, facilityID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
		patientID.String(), facilityID.String())
	return err
}

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(
		&b.ID, &b.PatientID, &b.FacilityID, &b.BillNumber, &b.BillDate, &b.DueDate,
		&b.Subtotal, &b.TaxAmount, &b.DiscountAmount, &b.TotalAmount, &b.PaidAmount, &b.BalanceAmount,
		&b.Status, &b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBills(rows pgx.Rows) ([]*Bill, error) {
	var bills []*Bill
	for rows.Next() {
		var b Bill
		err := rows.Scan(
			&b.ID, &b.PatientID, &b.FacilityID, &b.BillNumber, &b.BillDate, &b.DueDate,
			&b.Subtotal, &b.TaxAmount, &b.DiscountAmount, &b.TotalAmount, &b.PaidAmount, &b.BalanceAmount,
			&b.Status, &b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bills = append(bills, &b)
	}
	return bills, nil
}
