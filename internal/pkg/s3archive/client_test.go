package s3archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
)

func TestNewClientRejectsDisabledOrIncompleteConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.ArchiveConfig{}, false)
	assert.ErrorContains(t, err, "disabled")

	_, err = NewClient(context.Background(), config.ArchiveConfig{Enabled: true, AccessKeyID: "id"}, false)
	assert.ErrorContains(t, err, "secret access key")
}
