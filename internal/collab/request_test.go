// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package collab_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnmiit/researchportal/internal/collab"
	"github.com/lnmiit/researchportal/pkg/errutil"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("idea ", n))
}

func validSubmission() collab.Submission {
	return collab.Submission{
		FacultyName:  "Dr. Rao",
		FacultyEmail: "f@x.com",
		ResumeLink:   "https://x.com/r.pdf",
	}
}

func TestSubmission_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*collab.Submission)
		public string
	}{
		{"missing faculty name", func(s *collab.Submission) { s.FacultyName = " " }, "Faculty name, email, and resume link are required"},
		{"missing email", func(s *collab.Submission) { s.FacultyEmail = "" }, "Faculty name, email, and resume link are required"},
		{"missing resume", func(s *collab.Submission) { s.ResumeLink = "" }, "Faculty name, email, and resume link are required"},
		{"email without dot", func(s *collab.Submission) { s.FacultyEmail = "f@x" }, "Invalid email format"},
		{"email with space", func(s *collab.Submission) { s.FacultyEmail = "f g@x.com" }, "Invalid email format"},
		{"relative resume link", func(s *collab.Submission) { s.ResumeLink = "resume.pdf" }, "Invalid resume link format"},
		{"resume link without host", func(s *collab.Submission) { s.ResumeLink = "https://" }, "Invalid resume link format"},
		{"81 word idea", func(s *collab.Submission) { s.ProjectIdea = words(81) }, "Project idea cannot exceed 80 words"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)
			_, err := sub.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "REQUEST_VALIDATION")
			assert.Contains(t, errPublic(err), tt.public)
		})
	}

	t.Run("80 word idea is accepted", func(t *testing.T) {
		sub := validSubmission()
		sub.ProjectIdea = words(80)
		got, err := sub.Validate()
		require.NoError(t, err)
		assert.Equal(t, 80, collab.WordCount(got.ProjectIdea))
	})

	t.Run("normalizes email", func(t *testing.T) {
		sub := validSubmission()
		sub.FacultyEmail = "  F@X.com "
		got, err := sub.Validate()
		require.NoError(t, err)
		assert.Equal(t, "f@x.com", got.FacultyEmail)
	})
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, collab.WordCount(""))
	assert.Equal(t, 0, collab.WordCount("  \n\t"))
	assert.Equal(t, 3, collab.WordCount("graph  neural\nnetworks"))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, collab.CanTransition(collab.StatusPending, collab.StatusAccepted))
	assert.True(t, collab.CanTransition(collab.StatusPending, collab.StatusRejected))
	assert.False(t, collab.CanTransition(collab.StatusPending, collab.StatusPending))
	assert.False(t, collab.CanTransition(collab.StatusAccepted, collab.StatusRejected))
	assert.False(t, collab.CanTransition(collab.StatusRejected, collab.StatusAccepted))
	assert.False(t, collab.CanTransition(collab.StatusAccepted, collab.StatusAccepted))
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, collab.StatusPending.Valid())
	assert.False(t, collab.Status("archived").Valid())
}
