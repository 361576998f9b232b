// Package crowd is a client for the Atlassian Crowd usermanagement REST API
// (…/crowd/rest/usermanagement/1/).
//
// The client authenticates itself with the application name and password
// (HTTP Basic, header built once), retries transport failures a bounded
// number of times without delay, and converts every non-success answer into
// an *Error whose Kind comes from a static table of Crowd reason codes.
//
//	c := crowd.New(crowd.Config{
//		ApplicationName:     "my-app",
//		ApplicationPassword: "secret",
//		ServiceURL:          "https://crowd.example.com",
//		ServiceURI:          "/crowd/rest/usermanagement/1/",
//		ConnectTimeout:      10 * time.Second,
//		ConnectionRetries:   2,
//	})
//	token, err := c.CreateSession(ctx, "jdoe", "pw", "10.0.0.7")
//	if crowd.KindOf(err) == crowd.KindAppAccessDenied { ... }
package crowd
