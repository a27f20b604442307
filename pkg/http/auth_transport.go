package http

import "net/http"

type authTransport struct {
	token     string
	username  string
	password  string
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())

	switch {
	case t.token != "":
		reqCopy.Header.Set("Authorization", "Bearer "+t.token)
	case t.username != "":
		reqCopy.SetBasicAuth(t.username, t.password)
	}

	return t.transport.RoundTrip(reqCopy)
}

func WithAuthToken(token string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &authTransport{
			token:     token,
			transport: rt,
		}
	})
}

// WithBasicAuth sets HTTP basic credentials when username is not empty
func WithBasicAuth(username, password string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &authTransport{
			username:  username,
			password:  password,
			transport: rt,
		}
	})
}
