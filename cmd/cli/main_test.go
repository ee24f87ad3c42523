package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/bagtrack/internal/api"
)

// isolate points the token directory at a temp dir for this test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "bagtrack")
}

func TestTokenFile_Lifecycle(t *testing.T) {
	base := isolate(t)
	require.Equal(t, base, cfgDir())
	require.Equal(t, filepath.Join(base, "token.json"), tokenPath())

	_, err := loadToken()
	require.Error(t, err, "no session saved yet")

	login := &api.LoginResponse{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Minute),
		User:        api.User{Role: "ground_staff", Name: "Rob Fox"},
	}
	require.NoError(t, saveToken(login))

	raw, err := os.ReadFile(tokenPath())
	require.NoError(t, err)
	var tf tokenFile
	require.NoError(t, json.Unmarshal(raw, &tf))
	require.Equal(t, "ground_staff", tf.Role)
	require.Equal(t, "Rob Fox", tf.Name)

	st, err := os.Stat(tokenPath())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	tok, err := loadToken()
	require.NoError(t, err)
	require.Equal(t, "tok", tok)

	login.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, saveToken(login))
	_, err = loadToken()
	require.Error(t, err, "expired session must be refused")

	require.NoError(t, dropToken())
	require.NoError(t, dropToken(), "logout twice is fine")
	_, err = os.Stat(tokenPath())
	require.True(t, os.IsNotExist(err))
}

func TestReadAll_FileAndStdin(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "msg.txt")
	require.NoError(t, os.WriteFile(manifest, []byte("gate B7 closes early"), 0o600))
	b, err := readAll(manifest)
	require.NoError(t, err)
	require.Equal(t, "gate B7 closes early", string(b))

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdin := os.Stdin
	os.Stdin = r
	t.Cleanup(func() { os.Stdin = stdin })
	go func() {
		_, _ = io.WriteString(w, "piped")
		_ = w.Close()
	}()
	b, err = readAll("-")
	require.NoError(t, err)
	require.Equal(t, "piped", string(b))
}

func TestPrintJSON_Indents(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	printJSON(api.Readiness{Ready: true, TotalPassengers: 2, Boarded: 2})
	os.Stdout = stdout
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	var got api.Readiness
	require.NoError(t, json.Unmarshal(out, &got))
	require.True(t, got.Ready)
	require.True(t, strings.Count(string(out), "\n") > 1)
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	require.Nil(t, splitList("  "))
	require.Equal(t, []string{"C1", "", "C2"}, splitList("C1, ,C2 "))
}

func TestBearerCreds(t *testing.T) {
	t.Parallel()

	md, err := bearerCreds{token: "T", secure: true}.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"authorization": "Bearer T"}, md)
	require.True(t, bearerCreds{secure: true}.RequireTransportSecurity())
	require.False(t, bearerCreds{token: "T"}.RequireTransportSecurity())
}

func TestLoadTLS(t *testing.T) {
	t.Parallel()

	for _, skip := range []bool{true, false} {
		creds, err := loadTLS("", skip)
		require.NoError(t, err)
		require.NotNil(t, creds)
	}

	badCA := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(badCA, []byte("not pem"), 0o600))
	creds, err := loadTLS(badCA, false)
	require.Error(t, err)
	require.Nil(t, creds)
}

func TestRequest_BuildsCalls(t *testing.T) {
	t.Parallel()

	method, in, out, err := request("checkin", []string{"-ticket", "1234567890", "-counters", "C1,C2"})
	require.NoError(t, err)
	require.Equal(t, api.MethodCheckIn, method)
	require.Equal(t, &api.CheckInRequest{TicketNumber: "1234567890", Counters: []string{"C1", "C2"}}, in)
	require.IsType(t, &api.CheckInResponse{}, out)

	cases := []struct {
		cmd    string
		args   []string
		method string
		check  func(any) bool
	}{
		{"clear", []string{"-ref", "123456"}, api.MethodClearSecurity,
			func(in any) bool { return in.(*api.BagRequest).Ref == "123456" }},
		{"depart", []string{"-msg", "m1"}, api.MethodDepartFlight,
			func(in any) bool { return in.(*api.DirectiveRequest).MessageID == "m1" }},
		{"flight-add", []string{"-airline", "AA", "-number", "1234", "-terminal", "T1", "-gate", "A1"}, api.MethodCreateFlight,
			func(in any) bool { return in.(*api.NewFlightRequest).Gate == "A1" }},
		{"passwd", []string{"-old", "a", "-new", "b"}, api.MethodChangePassword,
			func(in any) bool { return in.(*api.ChangePasswordRequest).New == "b" }},
	}
	for _, c := range cases {
		method, in, _, err := request(c.cmd, c.args)
		require.NoError(t, err, c.cmd)
		require.Equal(t, c.method, method, c.cmd)
		require.True(t, c.check(in), "%s: %#v", c.cmd, in)
	}
}

func TestRequest_PostReadsFile(t *testing.T) {
	t.Parallel()

	note := filepath.Join(t.TempDir(), "msg.txt")
	require.NoError(t, os.WriteFile(note, []byte("Belt 3 stopped\n"), 0o600))
	method, in, _, err := request("post", []string{"-board", "ground", "-file", note})
	require.NoError(t, err)
	require.Equal(t, api.MethodPostMessage, method)
	require.Equal(t, &api.PostMessageRequest{Board: "ground", Content: "Belt 3 stopped"}, in)
}

func TestRequest_UsageErrors(t *testing.T) {
	t.Parallel()

	for cmd, args := range map[string][]string{
		"nope":     nil,
		"checkin":  nil,
		"bag":      nil,
		"feed":     nil,
		"post":     {"-board", "ground"},
		"staff-rm": {"-bogus"},
	} {
		_, _, _, err := request(cmd, args)
		require.ErrorIs(t, err, errUsage, "%s %v", cmd, args)
	}
}

func TestLoginRequest(t *testing.T) {
	t.Parallel()

	r, err := loginRequest([]string{"-role", "passenger", "-id", "123456", "-ticket", "1234567890"})
	require.NoError(t, err)
	require.Equal(t, "123456", r.Identification)
	require.Empty(t, r.Username)

	_, err = loginRequest([]string{"-role", "passenger", "-id", "123456"})
	require.ErrorIs(t, err, errUsage, "passenger without ticket")
	_, err = loginRequest([]string{"-role", "administrator", "-u", "admin"})
	require.ErrorIs(t, err, errUsage, "staff without password")

	r, err = loginRequest([]string{"-role", "gate_staff", "-u", "GM12", "-p", "Secret1"})
	require.NoError(t, err)
	require.Equal(t, "gate_staff", r.Role)
	require.Equal(t, "Secret1", r.Password)
}
