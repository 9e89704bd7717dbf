package postgres

import (
	"context"
	"time"

	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
	"gorm.io/gorm"
)

// ProjectRepository implements storage.ProjectRepository.
type ProjectRepository struct {
	db *gorm.DB
}

var _ storage.ProjectRepository = (*ProjectRepository)(nil)

func (r *ProjectRepository) Close() error { return nil }

// CreateProject inserts the project and the owner's link in one transaction.
func (r *ProjectRepository) CreateProject(ctx context.Context, project *core.Project, ownerID core.ID) (*core.Project, error) {
	row := &projectRow{Name: project.Name, RepoURL: project.RepoURL, CreatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner userRow
		if err := tx.First(&owner, "id = ?", uint64(ownerID)).Error; err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return tx.Create(&userToProjectRow{UserID: uint64(ownerID), ProjectID: row.ID, CreatedAt: row.CreatedAt}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	project.Id = core.ID(row.ID)
	project.CreatedAt = row.CreatedAt
	project.DeletedAt = nil
	return project, nil
}

func (r *ProjectRepository) GetProject(ctx context.Context, id core.ID) (*core.Project, error) {
	var row projectRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", uint64(id)).Error; err != nil {
		return nil, translate(err)
	}
	return row.toCore(), nil
}

// accessible scopes a projects query to live rows linked to userID.
func accessible(db *gorm.DB, userID core.ID) *gorm.DB {
	return db.Model(&projectRow{}).
		Joins("JOIN user_to_projects utp ON utp.project_id = projects.id").
		Where("utp.user_id = ? AND projects.deleted_at IS NULL", uint64(userID))
}

func (r *ProjectRepository) FindProjectByRepoURL(ctx context.Context, userID core.ID, repoURL string) (*core.Project, error) {
	var row projectRow
	err := accessible(r.db.WithContext(ctx), userID).
		Where("projects.repo_url = ?", repoURL).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return row.toCore(), nil
}

func (r *ProjectRepository) ListProjectsForUser(ctx context.Context, userID core.ID) ([]*core.Project, error) {
	var rows []projectRow
	err := accessible(r.db.WithContext(ctx), userID).
		Order("projects.created_at ASC, projects.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	projects := make([]*core.Project, len(rows))
	for i := range rows {
		projects[i] = rows[i].toCore()
	}
	return projects, nil
}

func (r *ProjectRepository) HasAccess(ctx context.Context, userID, projectID core.ID) (bool, error) {
	var count int64
	err := accessible(r.db.WithContext(ctx), userID).
		Where("projects.id = ?", uint64(projectID)).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (r *ProjectRepository) SoftDeleteProject(ctx context.Context, id core.ID, at time.Time) (*core.Project, error) {
	deletedAt := at.UTC()
	result := r.db.WithContext(ctx).Model(&projectRow{}).
		Where("id = ?", uint64(id)).
		Update("deleted_at", deletedAt)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, storage.ErrNotFound
	}
	return r.GetProject(ctx, id)
}

// PurgeProject deletes dependents before the project row so foreign keys hold.
func (r *ProjectRepository) PurgeProject(ctx context.Context, id core.ID) error {
	pid := uint64(id)
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", pid).Delete(&embeddingRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", pid).Delete(&userToProjectRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", pid).Delete(&commitRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", pid).Delete(&questionRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", pid).Delete(&projectRow{}).Error
	}))
}
