// Copyright 2025 Veritrust Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veritrust-io/veritrust/api"
	"github.com/veritrust-io/veritrust/database"
	"github.com/veritrust-io/veritrust/ledger"
	"github.com/veritrust-io/veritrust/registry"
)

const testOwner = "addr_owner"

func newTestApi(t *testing.T) *api.Api {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	l, err := ledger.NewLedger(ledger.LedgerConfig{Database: db})
	require.NoError(t, err)
	trust := registry.NewTrustRegistry(registry.TrustRegistryConfig{
		Ledger: l,
	})
	require.NoError(t, trust.Initialize(testOwner))
	articles := registry.NewArticleRegistry(registry.ArticleRegistryConfig{
		Ledger: l,
		Trust:  trust,
	})
	require.NoError(
		t,
		articles.Initialize(
			testOwner,
			registry.VotingParams{VotingPeriod: 0, MinVotes: 3},
		),
	)
	return api.NewApi(api.ApiConfig{
		Trust:    trust,
		Articles: articles,
	})
}

func doRequest(
	t *testing.T,
	a *api.Api,
	method string,
	path string,
	body any,
) (int, map[string]any) {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(bodyJson)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	var respBody map[string]any
	if len(rec.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respBody))
	}
	return rec.Code, respBody
}

func testHashHex(content string) string {
	digest := sha256.Sum256([]byte(content))
	return hex.EncodeToString(digest[:])
}

func TestApiHealth(t *testing.T) {
	a := newTestApi(t)
	code, body := doRequest(t, a, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])
}

func TestApiSubmitAndGet(t *testing.T) {
	a := newTestApi(t)
	hashHex := testHashHex("api article")
	code, body := doRequest(t, a, http.MethodPost, "/v1/articles", map[string]any{
		"content_hash": hashHex,
		"uri":          "https://example.com/a",
		"submitter":    "addr_submitter",
	})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, hashHex, body["content_hash"])
	require.Equal(t, "UnderReview", body["status"])

	code, body = doRequest(t, a, http.MethodGet, "/v1/articles/"+hashHex, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "addr_submitter", body["submitter"])

	// Duplicate submission conflicts
	code, _ = doRequest(t, a, http.MethodPost, "/v1/articles", map[string]any{
		"content_hash": hashHex,
		"submitter":    "addr_other",
	})
	require.Equal(t, http.StatusConflict, code)
}

func TestApiGetArticleNotFound(t *testing.T) {
	a := newTestApi(t)
	code, _ := doRequest(
		t, a, http.MethodGet, "/v1/articles/"+testHashHex("missing"), nil,
	)
	require.Equal(t, http.StatusNotFound, code)
}

func TestApiBadFingerprint(t *testing.T) {
	a := newTestApi(t)
	code, _ := doRequest(t, a, http.MethodGet, "/v1/articles/nothex", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, a, http.MethodPost, "/v1/articles", map[string]any{
		"content_hash": "abcd",
		"submitter":    "addr_submitter",
	})
	require.Equal(t, http.StatusBadRequest, code)
}

func TestApiVoteFlow(t *testing.T) {
	a := newTestApi(t)
	hashHex := testHashHex("vote flow article")
	code, _ := doRequest(t, a, http.MethodPost, "/v1/articles", map[string]any{
		"content_hash": hashHex,
		"submitter":    "addr_submitter",
	})
	require.Equal(t, http.StatusCreated, code)

	votePath := "/v1/articles/" + hashHex + "/votes"
	code, body := doRequest(t, a, http.MethodPost, votePath, map[string]any{
		"voter":   "addr_voter1",
		"support": true,
	})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, float64(1), body["yes_votes"])

	// Duplicate vote conflicts
	code, _ = doRequest(t, a, http.MethodPost, votePath, map[string]any{
		"voter":   "addr_voter1",
		"support": false,
	})
	require.Equal(t, http.StatusConflict, code)

	code, body = doRequest(
		t, a, http.MethodGet,
		"/v1/articles/"+hashHex+"/voters/addr_voter1", nil,
	)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["voted"])

	// Voting period of zero: quorum alone finalizes
	code, body = doRequest(t, a, http.MethodPost, votePath, map[string]any{
		"voter":   "addr_voter2",
		"support": true,
	})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, false, body["finalized"])
	code, body = doRequest(t, a, http.MethodPost, votePath, map[string]any{
		"voter":   "addr_voter3",
		"support": true,
	})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, true, body["finalized"])
	require.Equal(t, "VerifiedTrue", body["status"])

	// Vote on a missing article
	code, _ = doRequest(
		t, a, http.MethodPost,
		"/v1/articles/"+testHashHex("missing")+"/votes",
		map[string]any{"voter": "addr_voter1", "support": true},
	)
	require.Equal(t, http.StatusNotFound, code)
}

func TestApiPublishers(t *testing.T) {
	a := newTestApi(t)
	code, body := doRequest(
		t, a, http.MethodGet, "/v1/publishers/addr_pub", nil,
	)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, body["trusted"])

	// Non-owner is rejected
	code, _ = doRequest(t, a, http.MethodPost, "/v1/publishers", map[string]any{
		"caller":  "addr_random",
		"address": "addr_pub",
	})
	require.Equal(t, http.StatusForbidden, code)

	code, _ = doRequest(t, a, http.MethodPost, "/v1/publishers", map[string]any{
		"caller":  testOwner,
		"address": "addr_pub",
	})
	require.Equal(t, http.StatusCreated, code)
	code, _ = doRequest(t, a, http.MethodPost, "/v1/publishers", map[string]any{
		"caller":  testOwner,
		"address": "addr_pub",
	})
	require.Equal(t, http.StatusConflict, code)

	// Trusted publisher attestation auto-verifies a submission
	hashHex := testHashHex("trusted submission")
	code, body = doRequest(t, a, http.MethodPost, "/v1/articles", map[string]any{
		"content_hash": hashHex,
		"submitter":    "addr_submitter",
		"publisher":    "addr_pub",
	})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, true, body["finalized"])
	require.Equal(t, "VerifiedTrue", body["status"])

	code, _ = doRequest(
		t, a, http.MethodDelete,
		"/v1/publishers/addr_pub?caller="+testOwner, nil,
	)
	require.Equal(t, http.StatusOK, code)
	code, _ = doRequest(
		t, a, http.MethodDelete,
		"/v1/publishers/addr_pub?caller="+testOwner, nil,
	)
	require.Equal(t, http.StatusConflict, code)
}

func TestApiParams(t *testing.T) {
	a := newTestApi(t)
	code, body := doRequest(t, a, http.MethodGet, "/v1/params", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(3), body["min_votes"])

	code, _ = doRequest(t, a, http.MethodPut, "/v1/params", map[string]any{
		"caller":        "addr_random",
		"voting_period": 120,
		"min_votes":     5,
	})
	require.Equal(t, http.StatusForbidden, code)

	code, _ = doRequest(t, a, http.MethodPut, "/v1/params", map[string]any{
		"caller":        testOwner,
		"voting_period": 120,
		"min_votes":     5,
	})
	require.Equal(t, http.StatusOK, code)
	code, body = doRequest(t, a, http.MethodGet, "/v1/params", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(120), body["voting_period"])
	require.Equal(t, float64(5), body["min_votes"])
}

func TestApiFingerprint(t *testing.T) {
	a := newTestApi(t)
	code, body := doRequest(t, a, http.MethodPost, "/v1/fingerprint", map[string]any{
		"content": "  some article text\n",
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, testHashHex("some article text"), body["content_hash"])
}
