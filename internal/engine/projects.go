package engine

import (
	"context"

	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/pkg/types"
)

// CreateProject creates a project grouping entity: entityType "Project",
// projectId set to its own name, tagged "project". Other entities join the
// project by referencing its name in their own projectId.
func (m *Manager) CreateProject(ctx context.Context, sess *session.Session, name, description string) (*types.Entity, error) {
	var observations []string
	if description != "" {
		observations = []string{description}
	}
	return m.CreateEntity(ctx, sess, CreateEntityParams{
		Name:         name,
		EntityType:   types.EntityTypeProject,
		Observations: observations,
		ProjectID:    name,
		Tags:         []string{types.ProjectTag},
	})
}

// ListProjects returns the summary view of every project entity.
func (m *Manager) ListProjects(ctx context.Context) ([]types.EntitySummary, error) {
	g, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	projects := []types.EntitySummary{}
	for _, e := range g.Entities {
		if e.IsProject() {
			projects = append(projects, e.Summary())
		}
	}
	return projects, nil
}
