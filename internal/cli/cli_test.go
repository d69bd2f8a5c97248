package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/path-planner/internal/models"
	"github.com/noah-isme/path-planner/internal/planner"
	"github.com/noah-isme/path-planner/internal/service"
	"github.com/noah-isme/path-planner/pkg/config"
)

const fixtureJSON = `{
  "catalog": [
    {"id": "A", "code": "A", "name": "Algorithms", "homeTerm": 1, "theoryCredits": 2, "isActive": true},
    {"id": "B", "code": "B", "name": "Data Structures", "homeTerm": 2, "theoryCredits": 2, "isActive": true,
     "requirements": [{"kind": "SUBJECT", "code": "A"}]},
    {"id": "E1", "code": "E1", "name": "Robotics", "homeTerm": 1, "workloadHours": 60, "isElective": true, "isActive": true},
    {"id": "E2", "code": "E2", "name": "Graphics", "homeTerm": 1, "workloadHours": 60, "isElective": true, "isActive": true}
  ],
  "requiredElectiveHours": 60,
  "calendar": {"baseYear": 2026, "baseTerm": 1, "termsPerYear": 2}
}`

func writeFixture(t *testing.T, mutate func(map[string]interface{})) string {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(fixtureJSON), &doc))
	if mutate != nil {
		mutate(doc)
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPredictCommand(t *testing.T) {
	path := writeFixture(t, nil)

	out, err := execute(t, "predict", "--fixture", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2026.1")
	assert.Contains(t, out, "2026.2")
	assert.Contains(t, out, "Data Structures")
	assert.Contains(t, out, "status: COMPLETE")
	assert.Contains(t, out, "expected completion: 2026.2")
	assert.Less(t, strings.Index(out, "Algorithms"), strings.Index(out, "Data Structures"))
}

func TestPredictCommandJSON(t *testing.T) {
	path := writeFixture(t, func(doc map[string]interface{}) {
		doc["fixedTerms"] = [][]string{{"A", "E2"}}
	})

	out, err := execute(t, "predict", "-f", path, "--json")
	require.NoError(t, err)

	var result planner.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.FixedCount)
	assert.Equal(t, 2, result.TermCount)
	require.Len(t, result.Terms[1], 1)
	assert.Equal(t, "B", result.Terms[1][0].ID)
}

func TestPredictCommandRejectsDanglingReferences(t *testing.T) {
	path := writeFixture(t, func(doc map[string]interface{}) {
		doc["completed"] = []string{"Z"}
	})

	_, err := execute(t, "predict", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Z"`)

	_, err = execute(t, "predict")
	assert.Error(t, err)
}

func TestCheckExclusionCommand(t *testing.T) {
	path := writeFixture(t, nil)
	out, err := execute(t, "check-exclusion", "E1", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "secured 0h + pool 60h, 60h required")
	assert.Contains(t, out, "exclusion allowed")

	path = writeFixture(t, func(doc map[string]interface{}) {
		doc["blacklist"] = []string{"E2"}
	})
	_, err = execute(t, "check-exclusion", "E1", "-f", path)
	var exclusion *planner.ExclusionError
	require.True(t, errors.As(err, &exclusion))
	assert.Equal(t, 0, exclusion.Check.PoolHours)

	_, err = execute(t, "check-exclusion", "A", "-f", path)
	assert.ErrorIs(t, err, planner.ErrNotElective)
	_, err = execute(t, "check-exclusion", "nope", "-f", path)
	assert.ErrorIs(t, err, planner.ErrUnknownSubject)
}

func TestRunTokenIssuesVerifiableToken(t *testing.T) {
	jwtCfg := config.JWTConfig{Secret: "cli-secret", Issuer: "path-planner"}
	var out bytes.Buffer
	require.NoError(t, runToken(&out, jwtCfg, tokenOptions{userID: "u-1", role: "admin", ttl: time.Minute}))

	claims, err := service.NewTokenService(service.TokenConfig{Secret: jwtCfg.Secret, Issuer: jwtCfg.Issuer}).
		ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	assert.Error(t, runToken(&out, jwtCfg, tokenOptions{userID: "u-1", role: "registrar", ttl: time.Minute}))
}
