// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package collab_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/thejerf/abtime"

	"github.com/lnmiit/researchportal/internal/collab"
	"github.com/lnmiit/researchportal/internal/collab/collabtest"
	"github.com/lnmiit/researchportal/pkg/errutil"
)

func code(err error) string { return errutil.Code(err) }

var _ = Describe("Request workflow", func() {
	var (
		ctx       context.Context
		store     *collabtest.Store
		clock     *abtime.ManualTime
		svc       *collab.Service
		facultyID ulid.ULID
		studentID ulid.ULID
	)

	submit := func(student ulid.ULID) *collab.Request {
		req, err := svc.Submit(ctx, student, collab.Submission{
			FacultyName:  "Dr. Rao",
			FacultyEmail: "f@x.com",
			ResumeLink:   "https://x.com/r.pdf",
		})
		Expect(err).NotTo(HaveOccurred())
		clock.Advance(time.Minute)
		return req
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = collabtest.New()
		clock = abtime.NewManualAtTime(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
		var err error
		svc, err = collab.NewService(store, store, store, collab.WithClock(clock))
		Expect(err).NotTo(HaveOccurred())

		facultyID = store.AddFaculty("Dr. Rao", "f@x.com", "CSE")
		studentID = store.AddStudent("Asha", "a@lnmiit.ac.in", "CSE")
	})

	Describe("Submit", func() {
		It("creates a pending request addressed to the faculty member", func() {
			req := submit(studentID)
			Expect(req.Status).To(Equal(collab.StatusPending))
			Expect(req.FacultyID).To(Equal(facultyID))
			Expect(req.StudentID).To(Equal(studentID))
			Expect(req.CreatedAt).To(Equal(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)))
		})

		It("rejects a second request to the same faculty member", func() {
			submit(studentID)
			_, err := svc.Submit(ctx, studentID, collab.Submission{
				FacultyName: "Dr. Rao", FacultyEmail: "F@x.com", ResumeLink: "https://x.com/other.pdf",
			})
			Expect(code(err)).To(Equal("REQUEST_DUPLICATE"))
			Expect(errPublic(err)).To(Equal("You have already sent a request to this faculty"))
		})

		It("fails when no faculty member has the email", func() {
			_, err := svc.Submit(ctx, studentID, collab.Submission{
				FacultyName: "Nobody", FacultyEmail: "nobody@x.com", ResumeLink: "https://x.com/r.pdf",
			})
			Expect(code(err)).To(Equal("REQUEST_FACULTY_NOT_FOUND"))
		})

		It("maps an unknown student to an invalid reference", func() {
			_, err := svc.Submit(ctx, ulid.Make(), collab.Submission{
				FacultyName: "Dr. Rao", FacultyEmail: "f@x.com", ResumeLink: "https://x.com/r.pdf",
			})
			Expect(code(err)).To(Equal("REQUEST_INVALID_REFERENCE"))
		})

		It("rejects an 81 word idea", func() {
			_, err := svc.Submit(ctx, studentID, collab.Submission{
				FacultyName: "Dr. Rao", FacultyEmail: "f@x.com", ResumeLink: "https://x.com/r.pdf",
				ProjectIdea: words(81),
			})
			Expect(code(err)).To(Equal("REQUEST_VALIDATION"))
		})
	})

	Describe("Accept and Reject", func() {
		It("accepts a pending request and shows it in the incoming list", func() {
			req := submit(studentID)

			accepted, err := svc.Accept(ctx, facultyID, req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(accepted.Status).To(Equal(collab.StatusAccepted))
			Expect(store.Status(req.ID)).To(Equal(collab.StatusAccepted))

			incoming, err := svc.ListIncoming(ctx, facultyID)
			Expect(err).NotTo(HaveOccurred())
			Expect(incoming).To(HaveLen(1))
			Expect(incoming[0].Status).To(Equal(collab.StatusAccepted))
			Expect(incoming[0].Student).To(Equal(collab.StudentSummary{
				Name: "Asha", Email: "a@lnmiit.ac.in", Department: "CSE",
			}))
		})

		It("hides requests owned by another faculty member", func() {
			req := submit(studentID)
			other := store.AddFaculty("Dr. Sen", "sen@x.com", "ECE")

			_, errForeign := svc.Accept(ctx, other, req.ID)
			_, errMissing := svc.Accept(ctx, other, ulid.Make())
			Expect(code(errForeign)).To(Equal("REQUEST_NOT_FOUND_OR_UNAUTHORIZED"))
			Expect(errPublic(errForeign)).To(Equal(errPublic(errMissing)))
			Expect(code(errForeign)).To(Equal(code(errMissing)))

			_, errForeign = svc.Reject(ctx, other, req.ID)
			Expect(code(errForeign)).To(Equal("REQUEST_NOT_FOUND_OR_UNAUTHORIZED"))
			Expect(store.Status(req.ID)).To(Equal(collab.StatusPending))
		})

		It("treats accepted and rejected as terminal", func() {
			req := submit(studentID)
			_, err := svc.Reject(ctx, facultyID, req.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Accept(ctx, facultyID, req.ID)
			Expect(code(err)).To(Equal("REQUEST_INVALID_TRANSITION"))
			_, err = svc.Reject(ctx, facultyID, req.ID)
			Expect(code(err)).To(Equal("REQUEST_INVALID_TRANSITION"))
			Expect(store.Status(req.ID)).To(Equal(collab.StatusRejected))
		})

		It("refuses an 11th acceptance and leaves the request pending", func() {
			for i := range collab.MaxAccepted {
				s := store.AddStudent(fmt.Sprintf("Student %02d", i), fmt.Sprintf("s%d@lnmiit.ac.in", i), "CSE")
				_, err := svc.Accept(ctx, facultyID, submit(s).ID)
				Expect(err).NotTo(HaveOccurred())
			}
			eleventh := submit(studentID)

			_, err := svc.Accept(ctx, facultyID, eleventh.ID)
			Expect(code(err)).To(Equal("REQUEST_CAPACITY_EXCEEDED"))
			Expect(errPublic(err)).To(Equal("Limit exceeded. Only 10 requests are allowed to be accepted."))
			Expect(store.Status(eleventh.ID)).To(Equal(collab.StatusPending))

			_, err = svc.Reject(ctx, facultyID, eleventh.ID)
			Expect(err).NotTo(HaveOccurred(), "reject has no capacity check")
		})

		It("never exceeds capacity under concurrent accepts", func() {
			var ids []ulid.ULID
			for i := range 15 {
				s := store.AddStudent(fmt.Sprintf("Student %02d", i), fmt.Sprintf("c%d@lnmiit.ac.in", i), "CSE")
				ids = append(ids, submit(s).ID)
			}

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
			)
			for _, id := range ids {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := svc.Accept(ctx, facultyID, id); err == nil {
						mu.Lock()
						accepted++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(accepted).To(Equal(collab.MaxAccepted))
		})
	})

	Describe("Listing", func() {
		It("lists sent requests newest first with the faculty joined", func() {
			second := store.AddFaculty("Dr. Sen", "sen@x.com", "ECE")
			first := submit(studentID)
			latest, err := svc.Submit(ctx, studentID, collab.Submission{
				FacultyName: "Dr. Sen", FacultyEmail: "sen@x.com", ResumeLink: "https://x.com/r.pdf",
			})
			Expect(err).NotTo(HaveOccurred())

			sent, err := svc.ListSent(ctx, studentID)
			Expect(err).NotTo(HaveOccurred())
			Expect(sent).To(HaveLen(2))
			Expect(sent[0].ID).To(Equal(latest.ID))
			Expect(sent[0].FacultyID).To(Equal(second))
			Expect(sent[0].Teacher).To(Equal(collab.FacultySummary{Name: "Dr. Sen", Department: "ECE"}))
			Expect(sent[1].ID).To(Equal(first.ID))
		})

		It("returns nothing for a student without requests", func() {
			sent, err := svc.ListSent(ctx, ulid.Make())
			Expect(err).NotTo(HaveOccurred())
			Expect(sent).To(BeEmpty())
		})
	})
})
