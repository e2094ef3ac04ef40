// Package domain holds the session arithmetic shared by the calendar usecase and the flush scheduler.
package domain

import "errors"

var (
	// ErrInvalidSessionFormat is returned when a session string is not "HH:mm~HH:mm".
	ErrInvalidSessionFormat = errors.New("invalid session format")
	// ErrOutsideSession is returned by IndexOf for an instant outside the window.
	ErrOutsideSession = errors.New("instant is outside the session")
)
