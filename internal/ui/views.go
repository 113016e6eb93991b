package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Hargou/captioncraft/internal/api"
)

func (m Model) currentPost() (api.Post, bool) {
	if m.selectedPost < 0 || m.selectedPost >= len(m.snapshot.Posts) {
		return api.Post{}, false
	}
	return m.snapshot.Posts[m.selectedPost], true
}

func (m Model) currentCaption() (api.Caption, bool) {
	post, ok := m.currentPost()
	if !ok {
		return api.Caption{}, false
	}
	if m.selectedCaption < 0 || m.selectedCaption >= len(post.Captions) {
		return api.Caption{}, false
	}
	return post.Captions[m.selectedCaption], true
}

func (m Model) renderLogin() string {
	styles := m.theme.Styles()

	title := "CaptionCraft"
	if m.registering {
		title = "CaptionCraft - new account"
	}

	var b strings.Builder
	b.WriteString(styles.AccentText.Render(title))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("username"))
	b.WriteString("\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	if m.registering {
		b.WriteString(styles.MutedText.Render("display name"))
		b.WriteString("\n")
		b.WriteString(m.fullName.View())
		b.WriteString("\n")
	}
	b.WriteString(styles.MutedText.Render("password"))
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	switch {
	case m.loggingIn:
		b.WriteString(styles.MutedText.Render("signing in..."))
	case m.loginErr != "":
		b.WriteString(styles.DangerText.Render(m.loginErr))
	case m.registering:
		b.WriteString(styles.MutedText.Render("enter to create account, ctrl+n to sign in instead"))
	default:
		b.WriteString(styles.MutedText.Render("enter to sign in, ctrl+n to create an account"))
	}

	box := styles.Box.Render(b.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

func (m Model) renderFeed() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(m.renderHeader(styles))
	b.WriteString("\n")

	if m.snapshot.Err != "" {
		b.WriteString(styles.DangerText.Render("! " + m.snapshot.Err))
		b.WriteString("\n")
	}

	if len(m.snapshot.Posts) == 0 {
		if m.snapshot.Loading {
			b.WriteString(styles.MutedText.Render("loading feed..."))
		} else {
			b.WriteString(styles.MutedText.Render("no posts yet"))
		}
		b.WriteString("\n")
	}

	for i, post := range m.snapshot.Posts {
		b.WriteString(m.renderPost(styles, post, i == m.selectedPost))
	}

	if m.inputMode != inputNone {
		b.WriteString("\n")
		b.WriteString(m.compose.View())
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter(styles))
	return b.String()
}

func (m Model) renderPost(styles Styles, post api.Post, selected bool) string {
	var b strings.Builder

	heart := " "
	if post.LikedByUser {
		heart = "♥"
	}
	title := fmt.Sprintf("%s %s  %s %d likes  %d captions",
		heart, post.DisplayName(), post.ImageURL, post.LikeCount, post.CaptionCount)
	if selected {
		b.WriteString(styles.Selected.Render("> " + title))
	} else {
		b.WriteString(styles.Text.Render("  " + title))
	}
	b.WriteString("\n")

	for j, caption := range post.Captions {
		b.WriteString(m.renderCaption(styles, caption, selected && j == m.selectedCaption))
	}
	return b.String()
}

func (m Model) renderCaption(styles Styles, caption api.Caption, selected bool) string {
	var b strings.Builder

	heart := " "
	if m.snapshot.CaptionLiked(caption.ID) {
		heart = "♥"
	}
	line := fmt.Sprintf("   %s %s: %s (%d)", heart, caption.Username, caption.Text, caption.LikeCount)
	if selected {
		b.WriteString(styles.AccentText.Render(line))
	} else {
		b.WriteString(styles.MutedText.Render(line))
	}
	b.WriteString("\n")

	if m.snapshot.OpenCaption == caption.ID {
		for _, comment := range m.snapshot.CommentsByCaption[caption.ID] {
			b.WriteString(styles.Text.Render(fmt.Sprintf("      %s: %s", comment.Username, comment.Text)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderHeader(styles Styles) string {
	who := "not signed in"
	if user, ok := m.session.Current(); ok {
		who = user.Username
	}
	status := ""
	if m.snapshot.Loading {
		status = "  refreshing..."
	}
	header := fmt.Sprintf("CaptionCraft  %s%s", who, status)
	if m.width > 0 {
		return styles.Header.Width(m.width).Render(header)
	}
	return styles.Header.Render(header)
}

func (m Model) renderFooter(styles Styles) string {
	hints := "j/k posts  h/l captions  f/F like  c caption  m comments  r refresh  ? help  q quit"
	if m.width > 0 {
		return styles.Footer.Width(m.width).Render(hints)
	}
	return styles.Footer.Render(hints)
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	lines := []string{
		styles.AccentText.Render("CaptionCraft keys"),
		"",
		"j/↓, k/↑      move between posts",
		"h/←, l/→      move between captions",
		"f             like or unlike the selected post",
		"F             like or unlike the selected caption",
		"c             write a caption for the selected post",
		"m             show comments on the selected caption",
		"M             write a comment on the selected caption",
		"esc           close comments or cancel input",
		"r             refresh the feed",
		"T             cycle theme",
		"O             log out",
		"q, ctrl+c     quit",
		"",
		styles.MutedText.Render("press any key to close"),
	}
	box := styles.Box.Render(strings.Join(lines, "\n"))
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}
