package data

import (
	"time"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/repo"
	"github.com/Shadow-droid-3574/TeleResearch/internal/infra/telegram"
)

// Repositories contains all repositories
type Repositories struct {
	State   repo.StateRepo
	Audit   repo.AuditRepo
	Gateway repo.Gateway
}

// NewRepositories creates all repositories
func NewRepositories(
	tgClient *telegram.Client,
	statePath string,
	auditDBPath string,
	gatewayTimeout time.Duration,
) (*Repositories, error) {
	stateRepo, err := NewStateRepo(statePath)
	if err != nil {
		return nil, err
	}

	auditRepo, err := NewAuditRepo(auditDBPath)
	if err != nil {
		stateRepo.Close()
		return nil, err
	}

	return &Repositories{
		State:   stateRepo,
		Audit:   auditRepo,
		Gateway: NewTelegramGateway(tgClient, gatewayTimeout),
	}, nil
}

// Close releases every repository
func (r *Repositories) Close() {
	if r.State != nil {
		_ = r.State.Close()
	}
	if r.Audit != nil {
		_ = r.Audit.Close()
	}
}
