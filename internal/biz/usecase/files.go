package usecase

import (
	"context"
	"fmt"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/repo"
)

// FileUsecase manages the administrator-curated file registry
type FileUsecase struct {
	state repo.StateRepo
}

// NewFileUsecase creates a new file usecase
func NewFileUsecase(state repo.StateRepo) *FileUsecase {
	return &FileUsecase{state: state}
}

// Add registers a file entry under its key. Privileged callers only.
func (uc *FileUsecase) Add(ctx context.Context, actor domain.Actor, entry domain.FileEntry) error {
	if !actor.Privileged {
		return ErrNotAuthorized
	}
	if entry.Key == "" {
		return fmt.Errorf("file key must not be empty")
	}
	return uc.state.AddFile(ctx, entry)
}

// Remove deletes a file entry. Privileged callers only.
func (uc *FileUsecase) Remove(ctx context.Context, actor domain.Actor, key string) error {
	if !actor.Privileged {
		return ErrNotAuthorized
	}
	existing, err := uc.state.GetFile(ctx, key)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrUnknownFile
	}
	return uc.state.RemoveFile(ctx, key)
}

// Get looks up a file entry by key
func (uc *FileUsecase) Get(ctx context.Context, key string) (*domain.FileEntry, error) {
	entry, err := uc.state.GetFile(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrUnknownFile
	}
	return entry, nil
}

// List returns every registered file entry
func (uc *FileUsecase) List(ctx context.Context) ([]domain.FileEntry, error) {
	return uc.state.ListFiles(ctx)
}
