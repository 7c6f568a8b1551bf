package admission

import (
	"context"

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

const admCols = `id, patient_id, facility_id, room_id, status, admission_date, discharge_date, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission (id, patient_id, facility_id, room_id, status, admission_date, discharge_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.PatientID, a.FacilityID, a.RoomID, a.Status, a.AdmissionDate, a.DischargeDate,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return scanAdm(r.conn(ctx).QueryRow(ctx, `SELECT `+admCols+` FROM admission WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Admission) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE admission SET
			room_id=$2, status=$3, admission_date=$4, discharge_date=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.RoomID, a.Status, a.AdmissionDate, a.DischargeDate,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, patientID uuid.UUID, activeOnly bool, limit, offset int) ([]*Admission, int, error) {
	where := `WHERE ($1::uuid IS NULL OR patient_id = $1) AND (NOT $2 OR discharge_date IS NULL)`
	var pid interface{}
	if patientID != uuid.Nil {
		pid = patientID
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admission `+where, pid, activeOnly).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+admCols+` FROM admission `+where+` ORDER BY admission_date DESC LIMIT $3 OFFSET $4`,
		pid, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	adms, err := collectAdms(rows)
	return adms, total, err
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Admission, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+admCols+` FROM admission WHERE discharge_date IS NULL ORDER BY admission_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAdms(rows)
}

const roomCols = `id, name, category, daily_rate, active, created_at, updated_at`

func (r *repoPG) CreateRoom(ctx context.Context, room *Room) error {
	room.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO room (id, name, category, daily_rate, active)
		VALUES ($1,$2,$3,$4,$5)`,
		room.ID, room.Name, room.Category, room.DailyRate, room.Active,
	)
	return err
}

func (r *repoPG) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	var rm Room
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+roomCols+` FROM room WHERE id = $1`, id).
		Scan(&rm.ID, &rm.Name, &rm.Category, &rm.DailyRate, &rm.Active, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *repoPG) UpdateRoom(ctx context.Context, room *Room) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE room SET
			name=$2, category=$3, daily_rate=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		room.ID, room.Name, room.Category, room.DailyRate, room.Active,
	)
	return err
}

func (r *repoPG) ListRooms(ctx context.Context, activeOnly bool) ([]*Room, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+roomCols+` FROM room WHERE NOT $1 OR active ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*Room
	for rows.Next() {
		var rm Room
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Category, &rm.DailyRate, &rm.Active, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, &rm)
	}
	return rooms, nil
}

func scanAdm(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.PatientID, &a.FacilityID, &a.RoomID, &a.Status,
		&a.AdmissionDate, &a.DischargeDate, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAdms(rows pgx.Rows) ([]*Admission, error) {
	var adms []*Admission
	for rows.Next() {
		var a Admission
		err := rows.Scan(&a.ID, &a.PatientID, &a.FacilityID, &a.RoomID, &a.Status,
			&a.AdmissionDate, &a.DischargeDate, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, err
		}
		adms = append(adms, &a)
	}
	return adms, nil
}
