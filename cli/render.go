package cli

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/models"
)

const timeLayout = "2006-01-02 15:04"

var (
	colorAccent  = lipgloss.Color("#8aa2ff")
	colorSuccess = lipgloss.Color("#00d1b2")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#6b7280")
)

var styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
	Body    lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
	Body: lipgloss.NewStyle().PaddingLeft(2),
}

// text undoes the HTML escaping applied when content is stored.
func text(s string) string {
	return html.UnescapeString(s)
}

func topicBadge(t *models.Topic) string {
	if t == nil {
		return styles.Muted.Render("(no topic)")
	}
	color := t.Color
	if color == "" {
		color = models.DefaultTopicColor
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("● " + text(t.Title))
}

func renderTopics(w io.Writer, topics []models.Topic) {
	if len(topics) == 0 {
		fmt.Fprintln(w, styles.Muted.Render("No topics yet."))
		return
	}
	fmt.Fprintln(w, styles.Title.Render("Topics"))
	for i := range topics {
		t := &topics[i]
		fmt.Fprintf(w, "  #%-4d %s %s\n", t.ID, topicBadge(t),
			styles.Muted.Render(fmt.Sprintf("%d questions", t.QuestionCount)))
	}
}

func renderQuestions(w io.Writer, questions []models.Question, topics map[uint]*models.Topic) {
	if len(questions) == 0 {
		fmt.Fprintln(w, styles.Muted.Render("No questions found."))
		return
	}
	for _, q := range questions {
		fmt.Fprintf(w, "#%-4d %s\n", q.ID, styles.Bold.Render(text(q.Title)))
		fmt.Fprintf(w, "      %s  %s\n", topicBadge(topics[q.TopicID]), styles.Muted.Render(fmt.Sprintf(
			"by %s · %s · %d replies", q.Author, q.CreatedAt.Local().Format(timeLayout), q.ReplyCount)))
	}
}

func renderQuestion(w io.Writer, q *models.Question, topic *models.Topic) {
	header := lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render(fmt.Sprintf("#%d %s", q.ID, text(q.Title))),
		topicBadge(topic)+"  "+styles.Muted.Render(fmt.Sprintf("by %s · %s", q.Author, q.CreatedAt.Local().Format(timeLayout))),
		"",
		text(q.Body),
	)
	fmt.Fprintln(w, styles.Box.Render(header))

	if len(q.Replies) == 0 {
		fmt.Fprintln(w, styles.Muted.Render("No replies yet."))
		return
	}
	fmt.Fprintln(w, styles.Bold.Render(fmt.Sprintf("%d replies", len(q.Replies))))
	for _, r := range q.Replies {
		fmt.Fprintln(w, "  "+styles.Muted.Render(fmt.Sprintf("[%d] %s · %s", r.ID, r.Author,
			r.CreatedAt.Local().Format(timeLayout))))
		fmt.Fprintln(w, styles.Body.Render(text(r.Body)))
	}
}

func renderOnboarding(w io.Writer) {
	lines := []string{
		styles.Title.Render("Welcome to qforum"),
		"",
		"  qforum local topics              list topics",
		"  qforum local questions --q css   search questions",
		"  qforum local show 1              read a question and its replies",
		"  qforum local register NAME PASS  create an account",
		"  qforum local ask --topic 1 --title ... --body ...",
		"",
		fmt.Sprintf("A demo account is ready: %s / %s", forum.DemoUsername, forum.DemoPassword),
		styles.Muted.Render("Hide this guide with: qforum local onboarding --dismiss"),
	}
	fmt.Fprintln(w, styles.Box.Render(strings.Join(lines, "\n")))
}

func renderSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Success.Render(msg))
}

