// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package collab implements the BTP collaboration request workflow.
//
// A student submits a request to one faculty member. The request starts
// pending and the target faculty may accept or reject it exactly once.
// A faculty member holds at most MaxAccepted accepted requests; the check
// and the write run in one transaction that locks the faculty row.
package collab
