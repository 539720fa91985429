// Package delivery defines the contracts between this core and the
// external collaborators that actually transmit a composed request,
// and wraps their errors into recoverable, user-actionable failures.
package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"foiadir/internal/compose"
	"foiadir/internal/directory"
)

// Fallback destination when a record carries no website of its own.
const generalPortalURL = "https://www.foia.gov/"

// EmailSender transmits a composed request letter. Implemented by the
// external mail-dispatch collaborator.
type EmailSender interface {
	Send(ctx context.Context, payload compose.EmailPayload) error
}

// PortalAgent fills an agency portal form from a manifest. Implemented
// by the external form-automation collaborator.
type PortalAgent interface {
	Submit(ctx context.Context, manifest compose.PortalManifest) error
}

// Failure is the only error class surfaced to the end consumer. It
// always carries a manual-fallback instruction so a person can finish
// the submission by hand.
type Failure struct {
	Message           string
	ManualInstruction string
	Err               error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

func (f *Failure) Unwrap() error { return f.Err }

// Dispatcher routes a composed payload to its channel's collaborator.
type Dispatcher struct {
	email  EmailSender
	portal PortalAgent
	log    *zap.Logger
}

// NewDispatcher wires the collaborators. Either may be nil; dispatching
// to a missing collaborator yields a Failure rather than a panic.
func NewDispatcher(email EmailSender, portal PortalAgent, log *zap.Logger) *Dispatcher {
	return &Dispatcher{email: email, portal: portal, log: log}
}

// Dispatch hands the payload to the right collaborator. Any error comes
// back as a *Failure; callers never see a raw transport fault.
func (d *Dispatcher) Dispatch(ctx context.Context, payload compose.Payload) error {
	switch payload.Channel {
	case directory.ChannelEmail:
		return d.dispatchEmail(ctx, payload.Email)
	case directory.ChannelPortal:
		return d.dispatchPortal(ctx, payload.Portal)
	default:
		return &Failure{
			Message:           fmt.Sprintf("unknown submission channel %q", payload.Channel),
			ManualInstruction: fmt.Sprintf("Submit the request by hand at %s.", generalPortalURL),
		}
	}
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, payload *compose.EmailPayload) error {
	if payload == nil {
		return &Failure{
			Message:           "payload carries no letter",
			ManualInstruction: fmt.Sprintf("Compose and send the request yourself, or submit it at %s.", generalPortalURL),
		}
	}
	instruction := fmt.Sprintf("Send the letter to %s from your own mail client.", payload.To)
	if d.email == nil {
		return &Failure{Message: "no mail dispatcher configured", ManualInstruction: instruction}
	}
	if err := d.email.Send(ctx, *payload); err != nil {
		d.log.Warn("mail dispatch failed", zap.String("to", payload.To), zap.Error(err))
		return &Failure{
			Message:           fmt.Sprintf("sending the request to %s failed", payload.To),
			ManualInstruction: instruction,
			Err:               err,
		}
	}
	d.log.Info("request emailed", zap.String("to", payload.To))
	return nil
}

func (d *Dispatcher) dispatchPortal(ctx context.Context, manifest *compose.PortalManifest) error {
	if manifest == nil {
		return &Failure{
			Message:           "payload carries no portal manifest",
			ManualInstruction: fmt.Sprintf("Submit the request by hand at %s.", generalPortalURL),
		}
	}
	site := manifest.Website
	if site == "" {
		site = generalPortalURL
	}
	instruction := fmt.Sprintf("Submit the request by hand at %s.", site)
	if d.portal == nil {
		return &Failure{Message: "no portal agent configured", ManualInstruction: instruction}
	}
	if err := d.portal.Submit(ctx, *manifest); err != nil {
		d.log.Warn("portal submission failed",
			zap.String("unit_id", manifest.UnitID),
			zap.Bool("extended_field_set", manifest.ExtendedFieldSet),
			zap.Error(err))
		return &Failure{
			Message:           "portal submission failed",
			ManualInstruction: instruction,
			Err:               err,
		}
	}
	d.log.Info("request submitted via portal", zap.String("unit_id", manifest.UnitID))
	return nil
}
