package main

import "errors"

var (
	// the frame is JSON but lacks a required message field
	errIncompletePayload = errors.New("incomplete message payload")

	// ErrPeerTaken is returned when a user name is already connected to the relay
	ErrPeerTaken = errors.New("user is already connected")

	// ErrUnknownAction is returned for envelopes with an unsupported action_type
	ErrUnknownAction = errors.New("unknown action type")
)
