package graphql_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/corewar/corewar-api/internal/graphql"
	"github.com/corewar/corewar-api/pkg/corewar"
	"github.com/corewar/corewar-api/pkg/gqlclient"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const hillsData = `{"hills":[{"id":"h1","rules":{"rounds":3,"size":5,"options":{"coresize":8000,"maximumCycles":80000,"standard":2,"initialInstruction":{"address":0,"opcode":"DAT","modifier":"F","aOperand":{"mode":"$","address":0}}}},"warriors":[{"redcode":"MOV 0, 1"}]}]}`

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Path    []any  `json:"path"`
	} `json:"errors"`
}

func newHandler(t *testing.T, data string) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t, data)
	schema, err := graphql.LoadSchema("")
	require.NoError(t, err)
	return graphql.NewHandler(graphql.NewExecutor(schema, f.resolver), otelzap.New(zap.NewNop())), f
}

func post(t *testing.T, h http.Handler, params map[string]any) (int, response) {
	t.Helper()
	body, err := json.Marshal(params)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, h, req)
}

func do(t *testing.T, h http.Handler, req *http.Request) (int, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func execute(t *testing.T, h http.Handler, query string, vars map[string]any) response {
	t.Helper()
	params := map[string]any{"query": query}
	if vars != nil {
		params["variables"] = vars
	}
	_, resp := post(t, h, params)
	return resp
}

func TestExecutor_Hills(t *testing.T) {
	h, f := newHandler(t, hillsData)

	resp := execute(t, h, `query($id: ID) { hills(id: $id) { id rules { rounds options { coresize standard } } } }`, map[string]any{"id": "h1"})
	require.Empty(t, resp.Errors)

	assert.JSONEq(t, `{"hills":[{"id":"h1","rules":{"rounds":3,"options":{"coresize":8000,"standard":2}}}]}`, string(resp.Data))

	requests := f.client.Requests()
	require.Len(t, requests, 1)
	id, ok := requests[0].Variables["id"].(*string)
	require.True(t, ok)
	assert.Equal(t, "h1", *id)
}

func TestExecutor_Hills_Empty(t *testing.T) {
	h, _ := newHandler(t, `{"hills":[]}`)

	resp := execute(t, h, `{ hills { id } }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"hills":[]}`, string(resp.Data))
}

func TestExecutor_PreservesSelectionOrder(t *testing.T) {
	h, _ := newHandler(t, hillsData)

	resp := execute(t, h, `{ hills { warriors { redcode } id } }`, nil)
	require.Empty(t, resp.Errors)
	assert.Equal(t, `{"hills":[{"warriors":[{"redcode":"MOV 0, 1"}],"id":"h1"}]}`, string(resp.Data))
}

func TestExecutor_AliasesFragmentsAndTypename(t *testing.T) {
	h, _ := newHandler(t, hillsData)

	query := `
		query {
			__typename
			all: hills {
				__typename
				key: id
				...ruleFields
				... on Hill { warriors { redcode } }
			}
		}
		fragment ruleFields on Hill {
			rules { size options { initialInstruction { opcode aOperand { mode } bOperand { mode } } } }
		}`
	resp := execute(t, h, query, nil)
	require.Empty(t, resp.Errors)

	assert.JSONEq(t, `{
		"__typename": "Query",
		"all": [{
			"__typename": "Hill",
			"key": "h1",
			"rules": {"size": 5, "options": {"initialInstruction": {"opcode": "DAT", "aOperand": {"mode": "$"}, "bOperand": null}}},
			"warriors": [{"redcode": "MOV 0, 1"}]
		}]
	}`, string(resp.Data))
}

func TestExecutor_MergesRepeatedFields(t *testing.T) {
	h, _ := newHandler(t, hillsData)

	resp := execute(t, h, `{ hills { rules { rounds } rules { size } } }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"hills":[{"rules":{"rounds":3,"size":5}}]}`, string(resp.Data))
}

func TestExecutor_SkipAndInclude(t *testing.T) {
	h, _ := newHandler(t, hillsData)

	query := `query($withRules: Boolean!) { hills { id @skip(if: true) rules @include(if: $withRules) { rounds } warriors @include(if: false) { redcode } } }`

	resp := execute(t, h, query, map[string]any{"withRules": true})
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"hills":[{"rules":{"rounds":3}}]}`, string(resp.Data))

	resp = execute(t, h, query, map[string]any{"withRules": false})
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"hills":[{}]}`, string(resp.Data))
}

func TestExecutor_ClientErrorNullsData(t *testing.T) {
	h, f := newHandler(t, "")
	f.client.Err = gqlclient.NewQueryError(graphql.HillsScope, gqlclient.CodeHTTPStatus, "bad gateway")

	resp := execute(t, h, `{ hills { id } }`, nil)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "bad gateway")
	assert.Equal(t, []any{"hills"}, resp.Errors[0].Path)
	assert.JSONEq(t, `null`, string(resp.Data))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("hills", "error")))
}

func TestExecutor_CreateHill(t *testing.T) {
	h, f := newHandler(t, "")

	query := `mutation Create($rules: RulesInput!) { createHill(rules: $rules) { success } }`
	vars := map[string]any{
		"rules": map[string]any{
			"rounds": 10,
			"size":   4,
			"options": map[string]any{
				"coresize": 8000,
				"standard": 2,
				"initialInstruction": map[string]any{
					"opcode":   "DAT",
					"aOperand": map[string]any{"mode": "#", "address": 0},
				},
			},
		},
	}
	resp := execute(t, h, query, vars)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"createHill":{"success":true}}`, string(resp.Data))

	calls := f.broadcaster.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, corewar.EventCreateHill, calls[0].Event)

	body, ok := calls[0].Envelope.Body.(corewar.CreateHillBody)
	require.True(t, ok)
	assert.Equal(t, 10, body.Rules.Rounds)
	assert.Equal(t, 4, body.Rules.Size)
	assert.Equal(t, ptr(8000), body.Rules.Options.CoreSize)
	assert.Equal(t, ptr(corewar.StandardICWS94Draft), body.Rules.Options.Standard)
	assert.Nil(t, body.Rules.Options.MaximumCycles)
	require.NotNil(t, body.Rules.Options.InitialInstruction)
	assert.Equal(t, ptr("DAT"), body.Rules.Options.InitialInstruction.Opcode)
	assert.Nil(t, body.Rules.Options.InitialInstruction.Address)
	require.NotNil(t, body.Rules.Options.InitialInstruction.AOperand)
	assert.Equal(t, ptr("#"), body.Rules.Options.InitialInstruction.AOperand.Mode)
	assert.Equal(t, ptr(0), body.Rules.Options.InitialInstruction.AOperand.Address)
	assert.Nil(t, body.Rules.Options.InitialInstruction.BOperand)
}

func TestExecutor_MutationsRunInOrder(t *testing.T) {
	h, f := newHandler(t, "")

	query := `mutation {
		del: deleteHill(id: "h2") { success }
		challengeHill(id: "h1", redcode: "JMP 0") { success }
		updateHill(id: "h1", rules: {rounds: 1, size: 2, options: {}}, warriors: [{redcode: "DAT #0"}]) { success }
	}`
	resp := execute(t, h, query, nil)
	require.Empty(t, resp.Errors)
	assert.Equal(t, `{"del":{"success":true},"challengeHill":{"success":true},"updateHill":{"success":true}}`, string(resp.Data))

	calls := f.broadcaster.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, corewar.EventDeleteHill, calls[0].Event)
	assert.Equal(t, corewar.DeleteHillBody{ID: "h2"}, calls[0].Envelope.Body)
	assert.Equal(t, corewar.EventChallengeHill, calls[1].Event)
	assert.Equal(t, corewar.ChallengeHillBody{ID: "h1", Redcode: "JMP 0"}, calls[1].Envelope.Body)
	assert.Equal(t, corewar.EventUpdateHill, calls[2].Event)
	assert.Equal(t, corewar.UpdateHillBody{
		ID:       "h1",
		Rules:    corewar.Rules{Rounds: 1, Size: 2},
		Warriors: []corewar.Warrior{{Redcode: "DAT #0"}},
	}, calls[2].Envelope.Body)
}

func TestExecutor_ValidationErrors(t *testing.T) {
	h, f := newHandler(t, hillsData)

	tests := []struct {
		name  string
		query string
		vars  map[string]any
	}{
		{name: "syntax", query: `{ hills { id }`},
		{name: "unknown field", query: `{ hills { name } }`},
		{name: "missing argument", query: `mutation { deleteHill { success } }`},
		{name: "wrong argument type", query: `mutation { createHill(rules: {rounds: "many", size: 1, options: {}}) { success } }`},
		{name: "missing variable", query: `mutation($id: ID!) { deleteHill(id: $id) { success } }`},
		{name: "bad variable", query: `mutation($r: RulesInput!) { createHill(rules: $r) { success } }`, vars: map[string]any{"r": map[string]any{"rounds": 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := map[string]any{"query": tt.query}
			if tt.vars != nil {
				params["variables"] = tt.vars
			}
			code, resp := post(t, h, params)
			assert.Equal(t, http.StatusUnprocessableEntity, code)
			assert.NotEmpty(t, resp.Errors)
			assert.JSONEq(t, `null`, string(resp.Data))
		})
	}

	assert.Empty(t, f.broadcaster.Calls())
	assert.Empty(t, f.client.Requests())
}

func TestExecutor_OperationName(t *testing.T) {
	h, f := newHandler(t, hillsData)
	doc := `query A { hills { id } } mutation B { deleteHill(id: "h1") { success } }`

	code, resp := post(t, h, map[string]any{"query": doc})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.Len(t, resp.Errors, 1)

	code, resp = post(t, h, map[string]any{"query": doc, "operationName": "C"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "C")

	code, resp = post(t, h, map[string]any{"query": doc, "operationName": "B"})
	assert.Equal(t, http.StatusOK, code)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"deleteHill":{"success":true}}`, string(resp.Data))
	assert.Len(t, f.broadcaster.Calls(), 1)
	assert.Empty(t, f.client.Requests())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("B", "ok")))
}

func TestExecutor_GetRejectsMutations(t *testing.T) {
	h, f := newHandler(t, hillsData)

	q := url.Values{}
	q.Set("query", `mutation { deleteHill(id: "h1") { success } }`)
	code, resp := do(t, h, httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
	assert.Equal(t, http.StatusNotAcceptable, code)
	require.Len(t, resp.Errors, 1)
	assert.Empty(t, f.broadcaster.Calls())

	q.Set("query", `{ hills { id } }`)
	code, resp = do(t, h, httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
	assert.Equal(t, http.StatusOK, code)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"hills":[{"id":"h1"}]}`, string(resp.Data))
}

func TestExecutor_KeepsUnsetOptionsNull(t *testing.T) {
	h, _ := newHandler(t, `{"hills":[{"id":"h1","rules":{"rounds":1,"size":2,"options":{"coresize":null,"maxTasks":64,"initialInstruction":{"opcode":"DAT"}}},"warriors":[]}]}`)

	resp := execute(t, h, `{ hills { rules { options {
		coresize maximumCycles instructionLimit maxTasks minSeparation standard
		initialInstruction { address opcode modifier aOperand { mode address } }
	} } } }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"hills":[{"rules":{"options":{
		"coresize": null, "maximumCycles": null, "instructionLimit": null,
		"maxTasks": 64, "minSeparation": null, "standard": null,
		"initialInstruction": {"address": null, "opcode": "DAT", "modifier": null, "aOperand": null}
	}}}]}`, string(resp.Data))
}

func TestExecutor_CreateHillOmitsUnsetOptions(t *testing.T) {
	h, f := newHandler(t, "")

	resp := execute(t, h, `mutation { createHill(rules: {rounds: 1, size: 2, options: {minSeparation: 0}}) { success } }`, nil)
	require.Empty(t, resp.Errors)

	calls := f.broadcaster.Calls()
	require.Len(t, calls, 1)
	body, err := json.Marshal(calls[0].Envelope.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rules":{"rounds":1,"size":2,"options":{"minSeparation":0}}}`, string(body))
}

func TestExecutor_ComplexityLimit(t *testing.T) {
	h, f := newHandler(t, hillsData)

	var sb bytes.Buffer
	sb.WriteString("{")
	for i := 0; i <= graphql.ComplexityLimit; i++ {
		fmt.Fprintf(&sb, " h%d: __typename", i)
	}
	sb.WriteString(" hills { id } }")

	code, resp := post(t, h, map[string]any{"query": sb.String()})
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `null`, string(resp.Data))
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "complexity")
	assert.Empty(t, f.client.Requests())
}
