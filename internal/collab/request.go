// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package collab

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Status is the lifecycle state of a request.
type Status string

// Request states. Accepted and rejected are terminal.
const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

const (
	// MaxAccepted is how many accepted requests one faculty member may hold.
	MaxAccepted = 10

	// MaxIdeaWords bounds the project idea at submission.
	MaxIdeaWords = 80
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	return from == StatusPending && to.Terminal()
}

// Request is a student's proposal to work with a faculty member.
type Request struct {
	ID           ulid.ULID `json:"id"`
	StudentID    ulid.ULID `json:"studentId"`
	FacultyID    ulid.ULID `json:"facultyId"`
	Status       Status    `json:"status"`
	FacultyName  string    `json:"facultyName"`
	FacultyEmail string    `json:"facultyEmail"`
	ResumeLink   string    `json:"resumeLink"`
	ProjectIdea  string    `json:"projectIdea"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FacultySummary is the faculty data joined onto a student's sent requests.
type FacultySummary struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

// StudentSummary is the student data joined onto a faculty member's incoming requests.
type StudentSummary struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// SentRequest is a request as listed for the student who sent it.
type SentRequest struct {
	Request
	Teacher FacultySummary `json:"Teacher"`
}

// IncomingRequest is a request as listed for the faculty member it targets.
type IncomingRequest struct {
	Request
	Student StudentSummary `json:"Student"`
}

// Submission is the student-supplied part of a new request.
type Submission struct {
	FacultyName  string
	FacultyEmail string
	ResumeLink   string
	ProjectIdea  string
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func invalid(field, public string) error {
	return oops.Code("REQUEST_VALIDATION").
		With("field", field).
		Public(public).
		Errorf("invalid %s", field)
}

// WordCount counts whitespace-delimited words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Validate checks the submission and returns a normalized copy.
func (s Submission) Validate() (Submission, error) {
	s.FacultyName = strings.TrimSpace(s.FacultyName)
	s.FacultyEmail = strings.ToLower(strings.TrimSpace(s.FacultyEmail))
	s.ResumeLink = strings.TrimSpace(s.ResumeLink)
	s.ProjectIdea = strings.TrimSpace(s.ProjectIdea)

	if s.FacultyName == "" || s.FacultyEmail == "" || s.ResumeLink == "" {
		return s, invalid("required", "Faculty name, email, and resume link are required")
	}
	if !emailPattern.MatchString(s.FacultyEmail) {
		return s, invalid("facultyEmail", "Invalid email format")
	}
	if u, err := url.Parse(s.ResumeLink); err != nil || u.Scheme == "" || u.Host == "" {
		return s, invalid("resumeLink", "Invalid resume link format")
	}
	if WordCount(s.ProjectIdea) > MaxIdeaWords {
		return s, invalid("projectIdea", "Project idea cannot exceed 80 words")
	}
	return s, nil
}
