package listing

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/filters"
	"github.com/jonathan/postdesk/internal/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobPage is one page of the job outreach table.
type JobPage = Page[db.Job, filters.JobFilters]

// FilterOptions holds the values offered by the job filter dropdowns.
type FilterOptions struct {
	Companies []string `json:"companies"`
	Locations []string `json:"locations"`
	WorkTypes []string `json:"workTypes"`
}

// BuildJobsQuery translates job filters into a query scoped to owner.
// f must be normalized.
func BuildJobsQuery(owner uuid.UUID, f filters.JobFilters) *query.Builder {
	q := query.New().Eq("user_id", owner)
	if f.Status != "" {
		q.Eq("status", string(f.Status))
	}
	if f.Company != "" {
		q.Contains("company", f.Company)
	}
	if f.Location != "" {
		q.Contains("location", f.Location)
	}
	if f.WorkType != "" {
		q.Eq("work_type", f.WorkType)
	}
	if f.Search != "" {
		q.ContainsAny(f.Search, "title", "company", "location")
	}
	return q.OrderBy("created_at", true).Page(f.Page, f.PageSize)
}

// ListJobs returns the owner's page of jobs selected by f. A nil owner gets
// an empty page without touching the store.
func (s *Service) ListJobs(ctx context.Context, owner *uuid.UUID, f filters.JobFilters) (*JobPage, error) {
	f = f.Normalize()
	if owner == nil {
		return newPage[db.Job](nil, 0, f.Page, f.PageSize, f), nil
	}

	jobs, total, err := s.jobs.ListJobs(ctx, BuildJobsQuery(*owner, f))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jobs: %w", err)
	}
	return newPage(jobs, total, f.Page, f.PageSize, f), nil
}

// GetJob returns one of the owner's jobs, or nil if the owner is unknown or
// the job belongs to someone else.
func (s *Service) GetJob(ctx context.Context, owner *uuid.UUID, id uuid.UUID) (*db.Job, error) {
	if owner == nil {
		return nil, nil
	}
	job, err := s.jobs.GetJobForUser(ctx, id, *owner)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job: %w", err)
	}
	return job, nil
}

// ListJobsOrEmpty is ListJobs with failures logged and reported as an empty
// page.
func (s *Service) ListJobsOrEmpty(ctx context.Context, owner *uuid.UUID, f filters.JobFilters) *JobPage {
	page, err := s.ListJobs(ctx, owner, f)
	if err != nil {
		s.logger.Error("failed to fetch jobs", zap.Error(err))
		f = f.Normalize()
		return newPage[db.Job](nil, 0, f.Page, f.PageSize, f)
	}
	return page
}

// UniqueCompanies returns the distinct companies across the owner's jobs.
func (s *Service) UniqueCompanies(ctx context.Context, owner *uuid.UUID) ([]string, error) {
	return s.unique(ctx, owner, "company")
}

// UniqueLocations returns the distinct locations across the owner's jobs.
func (s *Service) UniqueLocations(ctx context.Context, owner *uuid.UUID) ([]string, error) {
	return s.unique(ctx, owner, "location")
}

// UniqueWorkTypes returns the distinct work types across the owner's jobs.
func (s *Service) UniqueWorkTypes(ctx context.Context, owner *uuid.UUID) ([]string, error) {
	return s.unique(ctx, owner, "work_type")
}

func (s *Service) unique(ctx context.Context, owner *uuid.UUID, column string) ([]string, error) {
	if owner == nil {
		return []string{}, nil
	}
	values, err := s.jobs.DistinctJobValues(ctx, *owner, column)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s values: %w", column, err)
	}
	return dedupe(values), nil
}

// FilterOptions fetches the three dropdown value sets concurrently.
func (s *Service) FilterOptions(ctx context.Context, owner *uuid.UUID) (*FilterOptions, error) {
	var opts FilterOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		opts.Companies, err = s.UniqueCompanies(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		opts.Locations, err = s.UniqueLocations(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		opts.WorkTypes, err = s.UniqueWorkTypes(gctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// dedupe drops nil and blank values, removes duplicates and sorts.
func dedupe(values []*string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == nil || strings.TrimSpace(*v) == "" || seen[*v] {
			continue
		}
		seen[*v] = true
		out = append(out, *v)
	}
	slices.Sort(out)
	return out
}
