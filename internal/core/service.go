package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/leads/internal/logging"
)

// ServiceConfig tunes import concurrency.
type ServiceConfig struct {
	MaxConcurrentImports int
	MaxWaitTime          time.Duration
}

// Service is the entry point for lead operations used by the web and CLI layers.
type Service struct {
	leads    LeadStore
	staff    StaffDirectory
	importer *Importer
	limiter  *ImportLimiter
}

// NewService creates a Service backed by the given stores.
func NewService(leads LeadStore, staff StaffDirectory, cfg ServiceConfig) *Service {
	return &Service{
		leads:    leads,
		staff:    staff,
		importer: NewImporter(leads, staff),
		limiter:  NewImportLimiter(cfg.MaxConcurrentImports, cfg.MaxWaitTime),
	}
}

// ImportFile imports one uploaded file on behalf of actor.
//
// The returned error is only set when no import slot could be obtained;
// problems inside the file are reported in the result.
func (s *Service) ImportFile(ctx context.Context, fileName string, data []byte, actor *Staff) (*ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	return s.importer.Import(ctx, fileName, data, actor), nil
}

// ImportLimiterStatus reports current import slot usage.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Count       int
}

// ExportLeads renders the leads matching f. formatName "excel" selects a
// workbook; anything else produces CSV.
func (s *Service) ExportLeads(ctx context.Context, f LeadFilter, formatName string) (*ExportFile, error) {
	format, err := ExportFormat(formatName)
	if err != nil {
		return nil, err
	}

	records, err := s.leads.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}

	data, err := Export(records, format)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("leads exported",
		"format", format.Name(),
		"count", len(records),
		"bytes", len(data),
	)

	return &ExportFile{
		Name:        ExportFileName(format),
		ContentType: format.ContentType(),
		Data:        data,
		Count:       len(records),
	}, nil
}

// ListLeads returns leads matching f, most recently updated first.
func (s *Service) ListLeads(ctx context.Context, f LeadFilter) ([]Lead, error) {
	leads, err := s.leads.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	return leads, nil
}

// GetLead returns one lead or ErrLeadNotFound.
func (s *Service) GetLead(ctx context.Context, id int64) (*Lead, error) {
	return s.leads.Get(ctx, id)
}

// CreateLead validates in and saves a new lead created by actor.
// Invalid input yields ValidationErrors.
func (s *Service) CreateLead(ctx context.Context, in LeadInput, actor *Staff) (*Lead, error) {
	assignee, err := s.checkInput(ctx, &in)
	if err != nil {
		return nil, err
	}

	l := &Lead{CreatedBy: actor, AssignedTo: assignee}
	in.apply(l)

	if err := s.leads.Save(ctx, l); err != nil {
		return nil, fmt.Errorf("save lead: %w", err)
	}

	logging.FromContext(ctx).Info("lead created", "lead_id", l.ID, "name", l.FullName())
	return l, nil
}

// UpdateLead replaces the editable fields of lead id.
func (s *Service) UpdateLead(ctx context.Context, id int64, in LeadInput) (*Lead, error) {
	l, err := s.leads.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	assignee, err := s.checkInput(ctx, &in)
	if err != nil {
		return nil, err
	}

	in.apply(l)
	l.AssignedTo = assignee

	if err := s.leads.Save(ctx, l); err != nil {
		return nil, fmt.Errorf("save lead: %w", err)
	}

	logging.FromContext(ctx).Info("lead updated", "lead_id", l.ID)
	return l, nil
}

// DeleteLead removes lead id permanently.
func (s *Service) DeleteLead(ctx context.Context, id int64) error {
	if err := s.leads.Delete(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("lead deleted", "lead_id", id)
	return nil
}

// LeadStats is the dashboard summary.
type LeadStats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
}

// Stats counts all leads, in total and per status. Every status is present
// in ByStatus, with zero when no lead has it.
func (s *Service) Stats(ctx context.Context) (*LeadStats, error) {
	counts, err := s.leads.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}

	stats := &LeadStats{ByStatus: make(map[Status]int, len(statusLabels))}
	for _, st := range Statuses() {
		stats.ByStatus[st] = counts[st]
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// checkInput validates the input and resolves its assignee.
func (s *Service) checkInput(ctx context.Context, in *LeadInput) (*Staff, error) {
	if verrs := ValidateLead(in); len(verrs) > 0 {
		return nil, verrs
	}
	if in.AssignedTo == "" || s.staff == nil {
		return nil, nil
	}

	staff, err := s.staff.FindByUsername(ctx, in.AssignedTo)
	if errors.Is(err, ErrStaffNotFound) {
		return nil, ValidationErrors{{
			Field:   FieldAssignedTo,
			Value:   in.AssignedTo,
			Message: "staff member not found",
		}}
	}
	if err != nil {
		return nil, fmt.Errorf("find staff: %w", err)
	}
	return staff, nil
}
