package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/vpn/internal/signing"
)

const testSecret = "topsecret"

func newAgentServer(runner *recordingRunner) *Server {
	return NewServer(zerolog.Nop(), testSecret, newTestManager(runner))
}

func signedRequest(t *testing.T, method, path string, body []byte, secret string) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(signing.Header, signing.Sign(body, secret))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestAgentServer_Healthz(t *testing.T) {
	s := newAgentServer(&recordingRunner{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentServer_NewKeys(t *testing.T) {
	s := newAgentServer(&recordingRunner{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, signedRequest(t, http.MethodGet, "/keys/new", nil, testSecret))

	require.Equal(t, http.StatusOK, rec.Code)
	var keys Keypair
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&keys))
	assert.NotEmpty(t, keys.PrivateKey)
	assert.NotEmpty(t, keys.PublicKey)
	assert.NotEqual(t, keys.PrivateKey, keys.PublicKey)
}

func TestAgentServer_BadSignature(t *testing.T) {
	runner := &recordingRunner{}
	s := newAgentServer(runner)

	body, _ := json.Marshal(AddPeerRequest{PeerPublicKey: "PEER_KEY", PeerIP: "10.7.1.10"})
	req := httptest.NewRequest(http.MethodPost, "/peers/add", bytes.NewReader(body))
	req.Header.Set(signing.Header, signing.Sign(body, "wrong-secret"))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad signature")
	assert.Empty(t, runner.calls)
}

func TestAgentServer_MissingSignature(t *testing.T) {
	s := newAgentServer(&recordingRunner{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/keys/new", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAgentServer_AddPeer(t *testing.T) {
	runner := &recordingRunner{}
	s := newAgentServer(runner)

	body, _ := json.Marshal(AddPeerRequest{PeerPublicKey: "PEER_KEY", PeerIP: "10.7.1.10"})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, signedRequest(t, http.MethodPost, "/peers/add", body, testSecret))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok":true`)
	}

	assert.Contains(t, runner.calls, "wg set wg0 peer PEER_KEY allowed-ips 10.7.1.10/32")
}

func TestAgentServer_AddPeer_MissingFields(t *testing.T) {
	s := newAgentServer(&recordingRunner{})

	body, _ := json.Marshal(AddPeerRequest{PeerPublicKey: "PEER_KEY"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, signedRequest(t, http.MethodPost, "/peers/add", body, testSecret))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "peerPublicKey and peerIp are required")
}

func TestAgentServer_AddPeer_ToolFailure(t *testing.T) {
	runner := &recordingRunner{}
	runner.respond = func(cmd string) ([]byte, error) {
		if strings.Contains(cmd, "peer") {
			return []byte("Unable to modify interface"), errors.New("exit status 1")
		}
		return nil, nil
	}
	s := newAgentServer(runner)

	body, _ := json.Marshal(AddPeerRequest{PeerPublicKey: "PEER_KEY", PeerIP: "10.7.1.10"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, signedRequest(t, http.MethodPost, "/peers/add", body, testSecret))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unable to modify interface")
}

func TestAgentServer_RemovePeer_UnknownPeer(t *testing.T) {
	runner := &recordingRunner{}
	runner.respond = func(cmd string) ([]byte, error) {
		if strings.Contains(cmd, "remove") {
			return []byte("No such peer"), errors.New("exit status 1")
		}
		return nil, nil
	}
	s := newAgentServer(runner)

	body, _ := json.Marshal(RemovePeerRequest{PeerPublicKey: "PEER_KEY"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, signedRequest(t, http.MethodPost, "/peers/remove", body, testSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentServer_AddPeer_InvalidJSON(t *testing.T) {
	s := newAgentServer(&recordingRunner{})

	body := []byte("{not json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, signedRequest(t, http.MethodPost, "/peers/add", body, testSecret))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}
