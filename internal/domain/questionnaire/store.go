package questionnaire

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListTemplates(ctx context.Context, tenantID string) ([]Template, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, target_role,
           COALESCE(level_id::text,''), COALESCE(grade_id::text,''), COALESCE(location_id::text,''),
           questions_json, created_at
    FROM questionnaire_templates
    WHERE tenant_id = $1
    ORDER BY created_at DESC
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var tmpl Template
		var questionsJSON []byte
		if err := rows.Scan(&tmpl.ID, &tmpl.Name, &tmpl.TargetRole, &tmpl.LevelID, &tmpl.GradeID, &tmpl.LocationID, &questionsJSON, &tmpl.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(questionsJSON, &tmpl.Questions); err != nil {
			tmpl.Questions = nil
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

func (s *Store) GetTemplate(ctx context.Context, tenantID, templateID string) (Template, error) {
	var tmpl Template
	var questionsJSON []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, target_role,
           COALESCE(level_id::text,''), COALESCE(grade_id::text,''), COALESCE(location_id::text,''),
           questions_json, created_at
    FROM questionnaire_templates
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, templateID).Scan(&tmpl.ID, &tmpl.Name, &tmpl.TargetRole, &tmpl.LevelID, &tmpl.GradeID, &tmpl.LocationID, &questionsJSON, &tmpl.CreatedAt)
	if err != nil {
		return Template{}, err
	}
	if err := json.Unmarshal(questionsJSON, &tmpl.Questions); err != nil {
		tmpl.Questions = nil
	}
	return tmpl, nil
}

func (s *Store) CreateTemplate(ctx context.Context, tenantID string, tmpl Template) (string, error) {
	questionsJSON, err := json.Marshal(tmpl.Questions)
	if err != nil {
		return "", err
	}
	var id string
	err = s.DB.QueryRow(ctx, `
    INSERT INTO questionnaire_templates (tenant_id, name, target_role, level_id, grade_id, location_id, questions_json)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, tmpl.Name, tmpl.TargetRole, nullIfEmpty(tmpl.LevelID), nullIfEmpty(tmpl.GradeID), nullIfEmpty(tmpl.LocationID), questionsJSON).Scan(&id)
	return id, err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
