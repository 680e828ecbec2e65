// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package store

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		assert.True(t, pattern.MatchString(name), "file %s should match NNNNNN_name.(up|down).sql", name)
		if base, ok := strings.CutSuffix(name, ".up.sql"); ok {
			ups[base] = true
		}
		if base, ok := strings.CutSuffix(name, ".down.sql"); ok {
			downs[base] = true
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestMigrationsFS_Constraints(t *testing.T) {
	principals, err := migrationsFS.ReadFile("migrations/000001_create_principals.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(principals), "faculty_email_key UNIQUE (email)")
	assert.Contains(t, string(principals), "faculty_author_id_key UNIQUE (author_id)")
	assert.Contains(t, string(principals), "(reset_token_hash IS NULL) = (reset_token_expires_at IS NULL)")

	requests, err := migrationsFS.ReadFile("migrations/000002_create_btp_requests.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(requests), "btp_requests_student_faculty_key UNIQUE (student_id, faculty_id)")
}
