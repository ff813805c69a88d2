// Package state holds the per-session slices that mirror backend responses.
//
// A slice changes only when one of its asynchronous operations settles: Begin
// marks it pending, then exactly one of the fulfilled reducers or Failed
// settles the ticket Begin returned. Every slice guards itself with its own
// mutex and is written only by its own operations.
package state

import (
	appErrors "github.com/noah-isme/course-console/pkg/errors"
)

// Status is the lifecycle of the most recent operation on a slice.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusRejected  Status = "rejected"
)

// Op names an asynchronous operation.
type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpEnroll Op = "enroll"
	OpGrade  Op = "grade"
	OpDrop   Op = "drop"
	OpGPA    Op = "gpa"
	OpLogin  Op = "login"
	OpSignup Op = "signup"
	OpLogout Op = "logout"
)

// Ticket identifies one dispatched operation.
type Ticket struct {
	Op  Op
	seq uint64
}

// async tracks in-flight operations. Callers hold the owning slice's lock.
type async struct {
	seq      uint64
	latest   map[Op]uint64
	inflight int
	status   Status
	op       Op
	err      string
}

func newAsync() async {
	return async{latest: make(map[Op]uint64), status: StatusIdle}
}

func (a *async) begin(op Op) Ticket {
	a.seq++
	a.latest[op] = a.seq
	a.inflight++
	a.status = StatusPending
	a.op = op
	a.err = ""
	return Ticket{Op: op, seq: a.seq}
}

// settle releases the ticket and reports whether it is the newest of its kind.
func (a *async) settle(t Ticket) bool {
	if a.inflight > 0 {
		a.inflight--
	}
	return a.latest[t.Op] == t.seq
}

func (a *async) fulfil(t Ticket) bool {
	current := a.settle(t)
	if current {
		a.status = StatusFulfilled
		a.op = t.Op
	}
	return current
}

func (a *async) reject(t Ticket, message string) {
	if a.settle(t) {
		a.status = StatusRejected
		a.op = t.Op
		a.err = message
	}
}

func (a *async) loading() bool { return a.inflight > 0 }

// failureMessage prefers the transport-provided message over the fixed fallback.
func failureMessage(err error, fallback string) string {
	return appErrors.Message(err, fallback)
}
