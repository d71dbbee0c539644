package model

import "github.com/rotisserie/eris"

// Error sentinels shared by the pipeline, stores, and HTTP layer. Match with
// eris.Is.
var (
	ErrInvalidInput   = eris.New("invalid input")
	ErrRecordNotFound = eris.New("record not found")
	ErrDigestNotFound = eris.New("digest not found")
)
