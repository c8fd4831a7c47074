package tts

import (
	"context"
	"strings"

	"github.com/yoockh/texttalk/internal/models"
	"github.com/yoockh/texttalk/internal/services"
	"github.com/yoockh/texttalk/internal/storage"
)

// Backend is the remote text-to-speech service.
type Backend = services.ConversionBackend

// signedBackend resolves gs:// audio locations into signed HTTPS URLs so the
// browser can play them directly.
type signedBackend struct {
	next   Backend
	signer storage.Signer
	opts   storage.SignOptions
}

// WithSigner wraps next so that results pointing into a private bucket come
// back as signed URLs. Other locations pass through untouched.
func WithSigner(next Backend, signer storage.Signer, opts storage.SignOptions) Backend {
	if signer == nil {
		return next
	}
	return &signedBackend{next: next, signer: signer, opts: opts}
}

func (b *signedBackend) Convert(ctx context.Context, req services.ConversionRequest) (*models.ConversionResult, error) {
	res, err := b.next.Convert(ctx, req)
	if err != nil || res == nil {
		return res, err
	}
	if !strings.HasPrefix(res.AudioURL, "gs://") {
		return res, nil
	}

	url, err := b.signer.SignedGetURL(ctx, res.AudioURL, b.opts.TTL)
	if err != nil {
		return nil, err
	}
	return &models.ConversionResult{AudioURL: url}, nil
}
