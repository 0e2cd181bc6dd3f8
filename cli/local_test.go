package cli

import (
	"bytes"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/utils"
)

func TestMain(m *testing.M) {
	utils.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type localCLI struct {
	t     *testing.T
	store string
}

func newLocalCLI(t *testing.T) *localCLI {
	return &localCLI{t: t, store: t.TempDir()}
}

// run executes "qforum local --store DIR args..." and returns its output.
func (c *localCLI) run(args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"local", "--store", c.store}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *localCLI) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

var postedID = regexp.MustCompile(`#(\d+)`)

func idFrom(t *testing.T, out string) string {
	t.Helper()
	m := postedID.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	return m[1]
}

func TestLocalFirstRunSeedsAndShowsGuide(t *testing.T) {
	c := newLocalCLI(t)
	out := c.mustRun()
	assert.Contains(t, out, "Welcome to qforum")
	assert.Contains(t, out, forum.DemoUsername+" / "+forum.DemoPassword)
	assert.NotContains(t, out, "No questions found.")

	out = c.mustRun("topics")
	for _, title := range []string{"JavaScript", "Python", "Web"} {
		assert.Contains(t, out, title)
	}

	c.mustRun("onboarding", "--dismiss")
	out = c.mustRun()
	assert.NotContains(t, out, "Welcome to qforum")

	c.mustRun("onboarding", "--show")
	assert.Contains(t, c.mustRun(), "Welcome to qforum")

	_, err := c.run("onboarding", "--show", "--dismiss")
	assert.Error(t, err)
}

func TestLocalSessionPersistsAcrossCommands(t *testing.T) {
	c := newLocalCLI(t)
	assert.Contains(t, c.mustRun("whoami"), "Not logged in.")

	assert.Contains(t, c.mustRun("register", "alice", "secret1"), "Welcome, alice! You are logged in.")
	assert.Contains(t, c.mustRun("whoami"), "Logged in as alice")

	assert.Contains(t, c.mustRun("logout"), "Logged out.")
	assert.Contains(t, c.mustRun("whoami"), "Not logged in.")

	_, err := c.run("login", "alice", "wrong-password")
	assert.ErrorIs(t, err, forum.ErrAuth)

	assert.Contains(t, c.mustRun("login", "ALICE", "secret1"), "Logged in as alice.")
	assert.Contains(t, c.mustRun(), "Logged in as alice")
}

func TestLocalQuestionFlow(t *testing.T) {
	c := newLocalCLI(t)
	c.mustRun("register", "alice", "secret1")

	topicID := idFrom(t, c.mustRun("topics", "add", "Go", "--color", "#00add8"))
	qid := idFrom(t, c.mustRun("ask", "--topic", topicID, "--title", "Buffered channels?", "--body", "When do they block?"))

	out := c.mustRun("questions", "--q", "buffered")
	assert.Contains(t, out, "Buffered channels?")
	assert.Contains(t, c.mustRun("ls", "--topic", topicID), "Buffered channels?")
	assert.Contains(t, c.mustRun("questions", "--q", "no-such-text"), "No questions found.")

	c.mustRun("logout")
	c.mustRun("register", "bob", "secret1")
	replyID := idFrom(t, c.mustRun("reply", qid, "When", "the", "buffer", "is", "full."))

	out = c.mustRun("show", qid)
	assert.Contains(t, out, "Buffered channels?")
	assert.Contains(t, out, "When the buffer is full.")
	assert.Contains(t, out, "1 replies")

	_, err := c.run("edit", qid, "--title", "hijacked")
	assert.ErrorIs(t, err, forum.ErrForbidden)
	_, err = c.run("rm", qid)
	assert.ErrorIs(t, err, forum.ErrForbidden)

	assert.Contains(t, c.mustRun("edit-reply", replyID, "Once", "it", "is", "full."), "Updated reply #"+replyID)

	c.mustRun("logout")
	c.mustRun("login", "alice", "secret1")
	_, err = c.run("rm-reply", replyID)
	assert.ErrorIs(t, err, forum.ErrForbidden)

	assert.Contains(t, c.mustRun("edit", qid, "--body", "And unbuffered ones?"), "Updated question #"+qid)
	out = c.mustRun("show", qid)
	assert.Contains(t, out, "Buffered channels?")
	assert.Contains(t, out, "And unbuffered ones?")
	assert.Contains(t, out, "Once it is full.")

	assert.Contains(t, c.mustRun("rm", qid), "Deleted question #"+qid)
	_, err = c.run("show", qid)
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func TestLocalRequiresLogin(t *testing.T) {
	c := newLocalCLI(t)
	_, err := c.run("ask", "--topic", "1", "--title", "t", "--body", "b")
	assert.ErrorIs(t, err, forum.ErrAuth)

	_, err = c.run("topics", "add", "Go")
	assert.ErrorIs(t, err, forum.ErrAuth)
}

func TestLocalTopicsManagement(t *testing.T) {
	c := newLocalCLI(t)
	c.mustRun("register", "alice", "secret1")

	id := idFrom(t, c.mustRun("topics", "add", "Rust"))
	assert.Contains(t, c.mustRun("topics", "edit", id, "--title", "Rust lang"), "Rust lang")
	assert.Contains(t, c.mustRun("topics", "list"), "Rust lang")

	_, err := c.run("topics", "edit", id, "--color", "blue")
	assert.ErrorIs(t, err, forum.ErrValidation)

	assert.Contains(t, c.mustRun("topics", "rm", id), "Deleted topic #"+id)
	assert.NotContains(t, c.mustRun("topics"), "Rust lang")

	_, err = c.run("topics", "rm", id)
	assert.ErrorIs(t, err, forum.ErrNotFound)
	_, err = c.run("topics", "rm", "abc")
	assert.ErrorIs(t, err, forum.ErrValidation)
}

func TestLocalBadQueryFlags(t *testing.T) {
	c := newLocalCLI(t)
	_, err := c.run("questions", "--sort", "hot")
	assert.ErrorIs(t, err, forum.ErrValidation)
	_, err = c.run("questions", "--topic", "x")
	assert.ErrorIs(t, err, forum.ErrValidation)
}

func TestParseIDArg(t *testing.T) {
	id, err := parseIDArg("#12", "question")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	for _, raw := range []string{"", "0", "abc", "-1"} {
		_, err := parseIDArg(raw, "question")
		assert.Error(t, err, raw)
	}
}
