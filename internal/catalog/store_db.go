package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

const productColumns = `id, nombre, precio, categoria, imagen, estado, descripcion, imagenes_extra`

const schemaSQL = `
CREATE TABLE IF NOT EXISTS productos (
	id             TEXT PRIMARY KEY,
	nombre         TEXT NOT NULL DEFAULT '',
	precio         TEXT NOT NULL DEFAULT '',
	categoria      TEXT NOT NULL DEFAULT '',
	imagen         TEXT NOT NULL DEFAULT '',
	estado         TEXT NOT NULL DEFAULT '',
	descripcion    TEXT NOT NULL DEFAULT '',
	imagenes_extra JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a pgx-backed *sql.DB and checks connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := withTimeout(ctx, connectTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schemaSQL)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+productColumns+`
			FROM productos
			ORDER BY created_at ASC, id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			SELECT `+productColumns+`
			FROM productos
			WHERE id = $1
		`, id)
		var err error
		p, err = scanProduct(row)
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func (s *PostgresStore) Create(ctx context.Context, p Product) (Product, error) {
	p = normalize(p)
	p.ID = uuid.NewString()

	extra, err := json.Marshal(p.ImagenesExtra)
	if err != nil {
		return Product{}, err
	}

	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO productos (`+productColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		`, p.ID, p.Nombre, p.Precio, p.Categoria, p.Imagen, p.Estado, p.Descripcion, string(extra))
		return err
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (Product, bool, error) {
	var extra any
	if patch.ImagenesExtra != nil {
		b, err := json.Marshal(*patch.ImagenesExtra)
		if err != nil {
			return Product{}, false, err
		}
		extra = string(b)
	}

	var p Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			UPDATE productos SET
				nombre         = COALESCE($2::text, nombre),
				precio         = COALESCE($3::text, precio),
				categoria      = COALESCE($4::text, categoria),
				imagen         = COALESCE($5::text, imagen),
				estado         = COALESCE($6::text, estado),
				descripcion    = COALESCE($7::text, descripcion),
				imagenes_extra = COALESCE($8::jsonb, imagenes_extra)
			WHERE id = $1
			RETURNING `+productColumns,
			id,
			nullable(patch.Nombre),
			nullable(patch.Precio),
			nullable(patch.Categoria),
			nullable(patch.Imagen),
			nullable(patch.Estado),
			nullable(patch.Descripcion),
			extra,
		)
		var err error
		p, err = scanProduct(row)
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM productos WHERE id = $1`, id)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p     Product
		extra []byte
	)
	if err := row.Scan(&p.ID, &p.Nombre, &p.Precio, &p.Categoria, &p.Imagen, &p.Estado, &p.Descripcion, &extra); err != nil {
		return Product{}, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &p.ImagenesExtra); err != nil {
			return Product{}, fmt.Errorf("%w: imagenes_extra: %v", ErrMalformedData, err)
		}
	}
	return normalize(p), nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
