// Package usecases orchestrates the song, tracklist and user workflows on top of the ports in models.
//
// A usecase verifies the caller's identity, enforces ownership, rejects lost updates and publishes split jobs.
// Usecases hold no mutable state after construction and are shared by every request.
//
// Every failure is an [*Error] carrying one [Kind]; callers branch on [KindOf].
package usecases
