package firebaseauth

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core/auth"
)

func TestProviderMapError(t *testing.T) {
	p := &Provider{}

	certFetchErr := fmt.Errorf("fetching public keys: %w", &url.Error{
		Op:  "Get",
		URL: "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com",
		Err: errors.New("connect: connection refused"),
	})
	dnsErr := &net.DNSError{Err: "no such host", Name: "www.googleapis.com", IsNotFound: true}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want auth.CredentialErrorKind
	}{
		{
			name: "cert fetch connection refused",
			ctx:  context.Background(),
			err:  certFetchErr,
			want: auth.CredentialProviderUnavailable,
		},
		{
			name: "cert fetch dns failure",
			ctx:  context.Background(),
			err:  dnsErr,
			want: auth.CredentialProviderUnavailable,
		},
		{
			name: "request context gone",
			ctx:  cancelled,
			err:  errors.New("context canceled"),
			want: auth.CredentialProviderUnavailable,
		},
		{
			name: "garbage token",
			ctx:  context.Background(),
			err:  errors.New("incorrect number of segments"),
			want: auth.CredentialMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.mapError(tt.ctx, tt.err)
			kind, ok := auth.CredentialKind(err)
			if !ok {
				t.Fatalf("mapError() = %v, want a credential error", err)
			}
			if kind != tt.want {
				t.Errorf("kind = %v, want %v", kind, tt.want)
			}
		})
	}
}

func TestProviderRefresh_passesBearerThrough(t *testing.T) {
	p := &Provider{}

	// ID tokens renew client-side; the server hands the bearer back as is
	token, err := p.Refresh(context.Background(), auth.RawCredential{Bearer: "tok"})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if token != "tok" {
		t.Errorf("Refresh() = %q, want tok", token)
	}

	_, err = p.Refresh(context.Background(), auth.RawCredential{})
	if kind, ok := auth.CredentialKind(err); !ok || kind != auth.CredentialMissing {
		t.Errorf("Refresh() error = %v, want credential missing", err)
	}
}
