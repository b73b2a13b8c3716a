package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	ProfileTable   = "profiles"
	profileColumns = "id,email,fullname,role"
)

type profileRow struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"fullname"`
	Role     string    `json:"role"`
}

func (p profileRow) toAccount() *Account {
	return &Account{
		ID:       p.ID,
		Email:    p.Email,
		FullName: p.FullName,
		Role:     ParseRole(p.Role),
	}
}

func (su *SupabaseRepo) queryProfiles(column, value string) ([]profileRow, error) {
	raw, status, err := su.supabaseClient.From(ProfileTable).
		Select(profileColumns, "", false).
		Eq(column, value).
		Execute()
	if err != nil {
		if status != 0 {
			return nil, fmt.Errorf("postgrest error: status=%d body=%s err=%w", status, string(raw), err)
		}
		return nil, fmt.Errorf("failed to query profiles by %s: %w", column, err)
	}

	// Supabase returns an array even for single results
	var rows []profileRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile rows: %w", err)
	}
	return rows, nil
}

func (su *SupabaseRepo) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("invalid UUID")
	}
	rows, err := su.queryProfiles("id", id.String())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toAccount(), nil
}

func (su *SupabaseRepo) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrNotFound
	}
	rows, err := su.queryProfiles("email", email)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	if len(rows) > 1 {
		return nil, fmt.Errorf("multiple profiles found for email %s", email)
	}
	return rows[0].toAccount(), nil
}

func (su *SupabaseRepo) ListAccountsByRole(ctx context.Context, role Role) ([]*Account, error) {
	rows, err := su.queryProfiles("role", string(role))
	if err != nil {
		return nil, err
	}
	out := make([]*Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toAccount())
	}
	return out, nil
}
