package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsSentinel(t *testing.T) {
	err := Wrap(ErrJobNotFound, "abc123")
	assert.True(t, Is(err, ErrJobNotFound))
	assert.False(t, Is(err, ErrSubtitleNotFound))
	assert.Equal(t, "abc123: conversion job not found", err.Error())

	wrapped := fmt.Errorf("reconcile: %w", err)
	assert.True(t, IsNotFound(wrapped))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))
	assert.Nil(t, Mark(nil, ErrDuplicateKey))
}

func TestMark(t *testing.T) {
	driverErr := errors.New("UNIQUE constraint failed: conversions.content_hash")
	err := Mark(driverErr, ErrDuplicateKey)

	assert.True(t, IsDuplicate(err))
	assert.True(t, errors.Is(err, driverErr), "driver error stays in the chain")
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
	assert.False(t, IsDuplicate(driverErr))
}

func TestAs(t *testing.T) {
	var target *Error
	err := fmt.Errorf("outer: %w", Wrap(errors.New("io"), "read failed"))
	assert.True(t, As(err, &target))
	assert.Equal(t, "read failed: io", target.Error())
}

func TestFieldHelpers(t *testing.T) {
	assert.EqualError(t, RequiredField("site_id"), "site_id is required")
	assert.EqualError(t, InvalidField("engine.concurrency", "must be positive"),
		"engine.concurrency is invalid: must be positive")
	assert.EqualError(t, NotFound("subtitle", "fr"), "subtitle not found: fr")

	assert.True(t, IsValidation(RequiredField("site_id")))
	assert.True(t, IsValidation(fmt.Errorf("create: %w", InvalidField("media_info", "not valid JSON"))))
	assert.False(t, IsValidation(NotFound("subtitle", "fr")))
	assert.False(t, IsValidation(ErrJobNotFound))
}
