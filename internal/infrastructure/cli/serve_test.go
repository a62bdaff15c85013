package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

func TestDescribeEvents(t *testing.T) {
	batch := []ports.FileEvent{
		{Path: "/corpus/colors.txt", Operation: ports.FileModified},
		{Path: "/corpus/new.txt", Operation: ports.FileCreated},
		{Path: "/corpus/colors.txt", Operation: ports.FileModified},
		{Path: "/corpus/old.txt", Operation: ports.FileDeleted},
	}

	assert.Equal(t, []string{"modified colors.txt", "created new.txt", "deleted old.txt"}, describeEvents(batch))
	assert.Empty(t, describeEvents(nil))
}
