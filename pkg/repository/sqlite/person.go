package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type personRepository struct {
	db *sql.DB
}

func (r *personRepository) Create(ctx context.Context, person *model.Person) (*model.Person, error) {
	created := *person
	if created.ID == "" {
		created.ID = model.NewPersonID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO people (id, name, relationship, created_at) VALUES (?, ?, ?, ?)`,
		string(created.ID), created.Name, created.Relationship, formatTime(created.CreatedAt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create person", goerr.V("personID", created.ID))
	}
	created.CreatedAt = created.CreatedAt.UTC()

	return &created, nil
}

func (r *personRepository) Get(ctx context.Context, id model.PersonID) (*model.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, relationship, created_at FROM people WHERE id = ?`, string(id))

	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "person not found", goerr.V("personID", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get person", goerr.V("personID", id))
	}
	return p, nil
}

func (r *personRepository) List(ctx context.Context) ([]*model.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, relationship, created_at FROM people ORDER BY name`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list people")
	}
	defer rows.Close()

	people := make([]*model.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan person")
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate people")
	}
	return people, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(s scanner) (*model.Person, error) {
	var (
		p         model.Person
		id        string
		createdAt string
	)
	if err := s.Scan(&id, &p.Name, &p.Relationship, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.ID = model.PersonID(id)
	p.CreatedAt = t
	return &p, nil
}
