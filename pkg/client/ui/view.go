package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/76creates/stickers/flexbox"
	"github.com/charmbracelet/lipgloss"

	"github.com/aeolun/votefeed/pkg/client"
	"github.com/aeolun/votefeed/pkg/protocol"
)

// profileWidth is the fixed width of the profile pane, borders included
const profileWidth = 26

// View renders the current view
func (m Model) View() string {
	// Don't render until we have dimensions
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var baseView string
	if m.splash {
		baseView = m.renderSplash()
	} else {
		baseView = m.renderFeedView()
	}

	if activeModal := m.modalStack.Top(); activeModal != nil {
		// Non-blocking modals sit over the feed, blocking ones replace it
		overlay := activeModal.Render(m.width, m.height)
		if activeModal.IsBlockingInput() {
			return overlay
		}
		return mergeOverlay(baseView, overlay)
	}

	return baseView
}

// renderSplash renders the first-run welcome screen
func (m Model) renderSplash() string {
	lines := []string{
		HeaderStyle.Render("Welcome to VoteFeed"),
		"",
		"A live feed of posts you can vote on.",
		"Posts arrive as they are written. Votes earn their authors karma.",
		"",
		MutedTextStyle.Render("Server: " + m.serverURL),
		"",
		MutedTextStyle.Render("Press any key to continue"),
	}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderFeedView renders the feed, the profile pane and the status bars
func (m Model) renderFeedView() string {
	layout := flexbox.NewHorizontal(m.width, m.height-3) // header(1) + footer(1) + spacing(1)

	feedCol := layout.NewColumn().AddCells(
		flexbox.NewCell(3, 1).
			SetStyle(FeedPaneStyle).
			SetContent(m.feed.View()),
	)

	columns := []*flexbox.Column{feedCol}
	if m.showProfile {
		profileCol := layout.NewColumn().AddCells(
			flexbox.NewCell(1, 1).
				SetStyle(ProfilePaneStyle.Width(profileWidth - 2).Height(m.height - 5)).
				SetContent(m.buildProfileContent()),
		)
		columns = append(columns, profileCol)
	}
	layout.AddColumns(columns)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		layout.Render(),
		m.renderFooter("[↑↓] Move  [u/d] Vote  [n] New  [r] Refresh  [p] Profile  [L] Log out  [q] Quit"),
	)
}

// renderHeader renders the header
func (m Model) renderHeader() string {
	title := "VoteFeed"
	if m.version != "" {
		title += " " + m.version
	}
	left := HeaderStyle.Render(title)

	status := connectionLabel(m.snap.Connection)
	if m.snap.Loading {
		status = m.spinner.View() + " " + status
	}
	if name := m.username(); name != "" {
		status = fmt.Sprintf("%s  %s", name, status)
	}
	right := StatusStyle.Render(status)

	spacer := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)))

	return left + spacer + right
}

// connectionLabel describes the connection state for the header
func connectionLabel(state client.ConnectionState) string {
	switch state {
	case client.StateReady:
		return lipgloss.NewStyle().Foreground(SuccessColor).Render("● live")
	case client.StateConnecting, client.StateOpen, client.StateAuthenticating:
		return lipgloss.NewStyle().Foreground(WarningColor).Render("◌ connecting")
	case client.StateClosed:
		return lipgloss.NewStyle().Foreground(ErrorColor).Render("○ disconnected")
	default:
		return MutedTextStyle.Render("○ offline")
	}
}

// buildProfileContent builds the profile pane
func (m Model) buildProfileContent() string {
	if m.snap.User == nil {
		return MutedTextStyle.Render("Not signed in")
	}
	u := m.snap.User

	lines := []string{
		PostOwnAuthorStyle.Render(u.Username),
		"",
		fmt.Sprintf("Karma   %s", formatKarma(u.Karma)),
		fmt.Sprintf("Streak  %d day%s", u.Streak, plural(int64(u.Streak))),
		"",
		MutedTextStyle.Render(fmt.Sprintf("%d post%s in feed", len(m.snap.Posts), plural(int64(len(m.snap.Posts))))),
	}
	return strings.Join(lines, "\n")
}

// buildFeedContent builds the scrollable post list
func (m Model) buildFeedContent(width int) string {
	if len(m.snap.Posts) == 0 {
		if m.snap.Loading {
			return MutedTextStyle.Render(m.spinner.View() + " Loading posts...")
		}
		return MutedTextStyle.Render("No posts yet. Press [n] to write the first one.")
	}

	items := make([]string, 0, len(m.snap.Posts))
	for i, post := range m.snap.Posts {
		item := m.formatPost(post, width-4)
		if i == m.cursor {
			item = SelectedPostStyle.Render(item)
		} else {
			item = UnselectedPostStyle.Render(item)
		}
		items = append(items, item)
	}
	return strings.Join(items, "\n\n")
}

// formatPost renders one post: score column, author line and wrapped content
func (m Model) formatPost(post protocol.Post, width int) string {
	authorStyle := PostAuthorStyle
	if m.snap.User != nil && post.AuthorID == m.snap.User.ID {
		authorStyle = PostOwnAuthorStyle
	}

	score := ScoreStyle.Render(fmt.Sprintf("%d", post.Score))
	switch m.votes[post.ID] {
	case protocol.VoteUp:
		score = ScoreStyle.Foreground(UpvoteColor).Render(fmt.Sprintf("▲%d", post.Score))
	case protocol.VoteDown:
		score = ScoreStyle.Foreground(DownvoteColor).Render(fmt.Sprintf("▼%d", post.Score))
	}

	header := authorStyle.Render(post.Author) + "  " +
		MutedTextStyle.Render(formatAge(time.UnixMilli(post.CreatedAt), time.Now()))

	contentWidth := max(10, width-lipgloss.Width(score)-1)
	body := PostContentStyle.Render(strings.Join(wrapText(post.Content, contentWidth), "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, score, " ", lipgloss.JoinVertical(lipgloss.Left, header, body))
}

// renderFooter renders the footer, toasts first
func (m Model) renderFooter(shortcuts string) string {
	footerContent := shortcuts

	if len(m.toasts) > 0 {
		var parts []string
		for _, t := range m.toasts {
			parts = append(parts, toastStyle(t.level).Render(t.message))
		}
		footerContent = strings.Join(parts, "  ") + "  " + footerContent
	}

	// Truncate if too long (FooterStyle has Padding(0, 1))
	maxWidth := m.width - 2
	suffix := " [?] for more…"
	fadeLength := 3

	if lipgloss.Width(footerContent) > maxWidth {
		truncateAt := max(0, maxWidth-lipgloss.Width(suffix)-fadeLength)
		truncated := truncateString(footerContent, truncateAt)

		// Trim trailing spaces so we don't fade invisible characters
		trimmed := strings.TrimRight(truncated, " ")
		trimmedWidth := lipgloss.Width(trimmed)

		remainingContent := getVisibleSubstring(footerContent, trimmedWidth, fadeLength)

		fadeColors := []string{"#666666", "#444444", "#222222"}
		var faded strings.Builder
		for i, r := range []rune(remainingContent) {
			if i < len(fadeColors) {
				faded.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(fadeColors[i])).Render(string(r)))
			} else {
				faded.WriteRune(r)
			}
		}

		footerContent = trimmed + faded.String() + suffix
	}

	return FooterStyle.Render(footerContent)
}

func toastStyle(level client.Level) lipgloss.Style {
	switch level {
	case client.LevelError:
		return ToastErrorStyle
	case client.LevelWarning:
		return ToastWarningStyle
	default:
		return ToastInfoStyle
	}
}

// resizeFeed fits the feed viewport to the window
func (m *Model) resizeFeed() {
	width := m.width - 4
	if m.showProfile {
		width -= profileWidth
	}
	m.feed.Width = max(10, width)
	m.feed.Height = max(1, m.height-5)
	m.refreshFeed()
}

// refreshFeed rebuilds the feed content and keeps the cursor in view
func (m *Model) refreshFeed() {
	content := m.buildFeedContent(m.feed.Width)
	m.feed.SetContent(content)

	// Each post starts after the blank line following the previous one
	line := 0
	for i := 0; i < m.cursor && i < len(m.snap.Posts); i++ {
		line += lipgloss.Height(m.formatPost(m.snap.Posts[i], m.feed.Width-4)) + 1
	}
	if line < m.feed.YOffset {
		m.feed.SetYOffset(line)
	} else if line >= m.feed.YOffset+m.feed.Height {
		m.feed.SetYOffset(line - m.feed.Height + 1)
	}
}

// mergeOverlay replaces base lines with the non-blank lines of overlay
func mergeOverlay(base, overlay string) string {
	baseLines := strings.Split(base, "\n")
	overlayLines := strings.Split(overlay, "\n")
	limit := min(len(baseLines), len(overlayLines))

	for i := 0; i < limit; i++ {
		if strings.TrimSpace(overlayLines[i]) != "" {
			baseLines[i] = overlayLines[i]
		}
	}

	return strings.Join(baseLines, "\n")
}

// getVisibleSubstring gets a substring of visible characters, skipping ANSI codes
func getVisibleSubstring(s string, start, length int) string {
	var result strings.Builder
	currentPos := 0
	inEscape := false
	collecting := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		}

		if inEscape {
			if collecting {
				result.WriteRune(r)
			}
			if r == 'm' {
				inEscape = false
			}
			continue
		}

		if currentPos >= start {
			collecting = true
			result.WriteRune(r)
			if currentPos-start+1 >= length {
				break
			}
		}
		currentPos++
	}

	return result.String()
}

// truncateString truncates s to maxLen visible characters, keeping ANSI codes
func truncateString(s string, maxLen int) string {
	if lipgloss.Width(s) <= maxLen {
		return s
	}

	var result strings.Builder
	currentWidth := 0
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		}

		if inEscape {
			result.WriteRune(r)
			if r == 'm' {
				inEscape = false
			}
			continue
		}

		if currentWidth >= maxLen {
			break
		}

		result.WriteRune(r)
		currentWidth++
	}

	return result.String()
}

// wrapText wraps text to fit within the specified width.
// Explicit line breaks in the text are kept.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		currentLine := ""
		for _, word := range words {
			// Words longer than the width overflow on their own line
			if len(word) > width {
				if currentLine != "" {
					lines = append(lines, currentLine)
					currentLine = ""
				}
				lines = append(lines, word)
				continue
			}

			testLine := currentLine
			if testLine != "" {
				testLine += " "
			}
			testLine += word

			if len(testLine) > width {
				lines = append(lines, currentLine)
				currentLine = word
			} else {
				currentLine = testLine
			}
		}
		if currentLine != "" {
			lines = append(lines, currentLine)
		}
	}

	return lines
}

// formatAge renders how long ago t was, relative to now
func formatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatKarma formats karma with k/M suffixes for large values
func formatKarma(karma int64) string {
	sign := ""
	if karma < 0 {
		sign = "-"
		karma = -karma
	}
	switch {
	case karma < 1000:
		return fmt.Sprintf("%s%d", sign, karma)
	case karma < 1000000:
		if karma%1000 == 0 {
			return fmt.Sprintf("%s%dk", sign, karma/1000)
		}
		return fmt.Sprintf("%s%.1fk", sign, float64(karma)/1000.0)
	default:
		if karma%1000000 == 0 {
			return fmt.Sprintf("%s%dM", sign, karma/1000000)
		}
		return fmt.Sprintf("%s%.1fM", sign, float64(karma)/1000000.0)
	}
}

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}
