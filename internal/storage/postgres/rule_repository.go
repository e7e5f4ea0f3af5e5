package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/booking/internal/domain"
)

type ruleRepository struct {
	db *sql.DB
}

// NewRuleRepository создаёт PostgreSQL-реализацию RuleRepository.
// Условия хранятся в JSONB, порядок правил задаёт колонка position.
func NewRuleRepository(store *Store) domain.RuleRepository {
	return &ruleRepository{db: store.DB()}
}

func (r *ruleRepository) List(ctx context.Context) ([]domain.ValidationRule, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, applies_to, conditions, is_active, created_at, updated_at
		FROM validation_rules
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list validation rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.ValidationRule, 0)
	for rows.Next() {
		var (
			rule       domain.ValidationRule
			scope      string
			conditions []byte
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &scope, &conditions, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan validation rule: %w", err)
		}
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("decode conditions of rule %s: %w", rule.ID, err)
		}
		rule.AppliesTo = domain.RuleScope(scope)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation rules: %w", err)
	}
	return rules, nil
}

func (r *ruleRepository) Add(ctx context.Context, rule domain.ValidationRule) (domain.ValidationRule, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return domain.ValidationRule{}, fmt.Errorf("encode rule conditions: %w", err)
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO validation_rules (id, name, applies_to, conditions, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, rule.ID, rule.Name, string(rule.AppliesTo), conditions, rule.IsActive, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ValidationRule{}, fmt.Errorf("rule %s: %w", rule.ID, domain.ErrAlreadyExists)
		}
		return domain.ValidationRule{}, fmt.Errorf("insert validation rule: %w", err)
	}
	return rule, nil
}

func (r *ruleRepository) Update(ctx context.Context, rule domain.ValidationRule) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encode rule conditions: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE validation_rules
		SET name = $2,
		    applies_to = $3,
		    conditions = $4,
		    is_active = $5,
		    updated_at = $6
		WHERE id = $1
	`, rule.ID, rule.Name, string(rule.AppliesTo), conditions, rule.IsActive, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update validation rule: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

var _ domain.RuleRepository = (*ruleRepository)(nil)
