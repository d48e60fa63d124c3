package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles every repository built on one database handle.
type Repositories struct {
	User   UserRepository
	APIKey APIKeyRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		APIKey: NewAPIKeyRepository(db),
	}
}

// Factory lazily builds the repositories once per database handle.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

func (f *Factory) GetAPIKeyRepository() APIKeyRepository {
	return f.GetRepositories().APIKey
}
