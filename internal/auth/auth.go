package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// TokenStore is an interface for saving and loading OAuth tokens.
type TokenStore interface {
	SaveToken(token *oauth2.Token) error
	LoadToken() (*oauth2.Token, error)
}

// autoSaveTokenSource wraps an oauth2.TokenSource and automatically saves refreshed tokens.
type autoSaveTokenSource struct {
	source     oauth2.TokenSource
	tokenStore TokenStore
	lastToken  *oauth2.Token
}

// Token implements oauth2.TokenSource and saves the token if it was refreshed.
func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, err
	}

	if a.lastToken == nil || a.lastToken.AccessToken != token.AccessToken {
		if err := a.tokenStore.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		a.lastToken = token
	}

	return token, nil
}

// callbackHandler answers the OAuth redirect. Requests carrying a state other
// than the one issued for this flow are rejected.
func callbackHandler(state string, codeChan chan<- string, errorChan chan<- error, done func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("state"); got != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errorChan <- fmt.Errorf("authorization state mismatch")
			done()
			return
		}

		if code := query.Get("code"); code != "" {
			fmt.Fprintf(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
			codeChan <- code
		} else if errMsg := query.Get("error"); errMsg != "" {
			fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>Error: %s</p></body></html>", errMsg)
			errorChan <- fmt.Errorf("authorization error: %s", errMsg)
		} else {
			fmt.Fprintf(w, "<html><body><h1>No authorization code received</h1></body></html>")
			errorChan <- fmt.Errorf("no authorization code received")
		}
		done()
	}
}

// startLocalServer starts a local HTTP server to receive the OAuth callback.
// Uses port 8080 by default, or a random port if 8080 is unavailable.
func startLocalServer(state string) (string, <-chan string, <-chan error, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:8080")
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to start local server: %w", err)
		}
	}

	port := listener.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 2)

	server := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  10 * time.Second,
	}
	shutdown := func() {
		go func() {
			time.Sleep(1 * time.Second)
			server.Shutdown(context.Background())
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", callbackHandler(state, codeChan, errorChan, shutdown))
	server.Handler = mux

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errorChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	return redirectURL, codeChan, errorChan, nil
}

// GetAuthenticatedClient returns an authenticated HTTP client using OAuth 2.0.
// If no token exists, it guides the user through the browser flow, printing
// instructions to out.
func GetAuthenticatedClient(ctx context.Context, oauthConfig *oauth2.Config, tokenStore TokenStore, out io.Writer) (*http.Client, error) {
	token, err := tokenStore.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if token == nil {
		token, err = authorize(ctx, oauthConfig, out)
		if err != nil {
			return nil, err
		}

		if err := tokenStore.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}

		fmt.Fprintln(out, "Authorization successful!")
	}

	tokenSource := oauthConfig.TokenSource(ctx, token)

	autoSaveSource := &autoSaveTokenSource{
		source:     oauth2.ReuseTokenSource(token, tokenSource),
		tokenStore: tokenStore,
		lastToken:  token,
	}

	return oauth2.NewClient(ctx, autoSaveSource), nil
}

func authorize(ctx context.Context, oauthConfig *oauth2.Config, out io.Writer) (*oauth2.Token, error) {
	state := uuid.NewString()

	redirectURL, codeChan, errorChan, err := startLocalServer(state)
	if err != nil {
		return nil, fmt.Errorf("failed to start local server: %w", err)
	}

	oauthConfig.RedirectURL = redirectURL
	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	fmt.Fprintf(out, "Starting local server on %s\n", redirectURL)
	if redirectURL != "http://127.0.0.1:8080" {
		fmt.Fprintf(out, "Note: Port 8080 was unavailable. Make sure to add %s to your authorized redirect URIs in Google Cloud Console.\n", redirectURL)
	}
	fmt.Fprintln(out, "\nPlease visit the following URL to authorize the application:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out, "\nWaiting for authorization...")

	var code string
	select {
	case code = <-codeChan:
	case err := <-errorChan:
		return nil, fmt.Errorf("failed to receive authorization code: %w", err)
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timeout: no response received within 5 minutes")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return token, nil
}
