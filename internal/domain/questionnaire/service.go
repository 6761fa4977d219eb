package questionnaire

import "context"

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) ListTemplates(ctx context.Context, tenantID string) ([]Template, error) {
	return s.Store.ListTemplates(ctx, tenantID)
}

func (s *Service) GetTemplate(ctx context.Context, tenantID, templateID string) (Template, error) {
	return s.Store.GetTemplate(ctx, tenantID, templateID)
}

func (s *Service) CreateTemplate(ctx context.Context, tenantID string, tmpl Template) (string, error) {
	return s.Store.CreateTemplate(ctx, tenantID, tmpl)
}
