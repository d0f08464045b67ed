package repository

import (
	"testing"
)

// PostgresCityRepoはCityRepositoryインターフェースを満たすことを検証
func TestPostgresCityRepo_ImplementsInterface(t *testing.T) {
	var _ CityRepository = (*PostgresCityRepo)(nil)
}

// NewPostgresCityRepoが正しく初期化されることを検証
func TestNewPostgresCityRepo_Initializes(t *testing.T) {
	repo := NewPostgresCityRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}
