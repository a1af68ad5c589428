package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"

	"github.com/Akashdeep-Patra/zed-git-sync/internal/git"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/hosting"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/reposync"
	"github.com/Akashdeep-Patra/zed-git-sync/internal/syncerr"
)

// RenderStatus renders the branch line, the remote, and the staged and
// unstaged file lists of a snapshot.
func RenderStatus(styles Styles, snap reposync.Snapshot) string {
	if snap.NotARepository {
		return styles.Warning.Render("Not a Git repository.") + "\n" +
			styles.Hint.Render(syncerr.NotARepository.Action()) + "\n"
	}
	st := snap.Status
	var b strings.Builder

	b.WriteString(RenderKeyValue(styles, "branch", branchLine(styles, st)) + "\n")
	remote := styles.Muted.Render("(none)")
	if st.RemoteURL != "" {
		remote = styles.RemoteName.Render(st.RemoteURL)
	}
	b.WriteString(RenderKeyValue(styles, "remote", remote) + "\n")
	b.WriteString(RenderKeyValue(styles, "setup", string(reposync.SetupStateOf(snap))) + "\n")

	staged, unstaged := splitFiles(st.Files)
	writeSection(&b, styles, "Staged changes", staged, func(f reposync.FileChange) reposync.FileState { return f.IndexState })
	writeSection(&b, styles, "Changes not staged", unstaged, func(f reposync.FileChange) reposync.FileState { return f.WorkingState })
	if len(staged) == 0 && len(unstaged) == 0 {
		b.WriteString("\n" + styles.Muted.Render("Working tree clean.") + "\n")
	}
	if len(st.Conflicted) > 0 {
		b.WriteString("\n" + styles.FileConflict.Render(fmt.Sprintf("%d conflicted file(s). Resolve them manually.", len(st.Conflicted))) + "\n")
	}
	return b.String()
}

func branchLine(styles Styles, st reposync.RepoStatus) string {
	if st.CurrentBranch == "" {
		return styles.Warning.Render("HEAD detached")
	}
	parts := []string{styles.BranchName.Render(st.CurrentBranch)}
	if st.Unborn {
		parts = append(parts, styles.Muted.Render("(no commits yet)"))
	}
	if !st.HasTracking() {
		parts = append(parts, styles.Muted.Render("untracked"))
		return JoinNonEmpty(" ", parts...)
	}
	parts = append(parts, styles.Muted.Render("→"), styles.RemoteName.Render(st.TrackingBranch))
	switch st.SyncState() {
	case reposync.SyncUpToDate:
		parts = append(parts, styles.Success.Render("up to date"))
	default:
		parts = append(parts, styles.Warning.Render(fmt.Sprintf("↑%d ↓%d", st.Ahead, st.Behind)))
	}
	return JoinNonEmpty(" ", parts...)
}

func splitFiles(files []reposync.FileChange) (staged, unstaged []reposync.FileChange) {
	for _, f := range files {
		if f.Staged() {
			staged = append(staged, f)
		}
		if f.Unstaged() {
			unstaged = append(unstaged, f)
		}
	}
	return staged, unstaged
}

func writeSection(b *strings.Builder, styles Styles, title string, files []reposync.FileChange, side func(reposync.FileChange) reposync.FileState) {
	if len(files) == 0 {
		return
	}
	b.WriteString("\n" + styles.Subtitle.Render(title) + "\n")
	for _, f := range files {
		state := side(f)
		name := f.Path
		if f.OrigPath != "" {
			name = f.OrigPath + " → " + f.Path
		}
		b.WriteString("  " + fileStyle(styles, state).Render(PadRight(string(state), 10)+" "+name) + "\n")
	}
}

func fileStyle(styles Styles, state reposync.FileState) lipgloss.Style {
	switch state {
	case reposync.StateAdded:
		return styles.FileAdded
	case reposync.StateDeleted:
		return styles.FileDeleted
	case reposync.StateRenamed, reposync.StateCopied:
		return styles.FileRenamed
	case reposync.StateUnmerged:
		return styles.FileConflict
	case reposync.StateUntracked:
		return styles.FileUntracked
	default:
		return styles.FileModified
	}
}

// RenderDiff renders a reconstructed diff side by side: old text on the
// left, new text on the right.
func RenderDiff(styles Styles, h reposync.DiffHunk, totalWidth int) string {
	side := "unstaged"
	if h.Staged {
		side = "staged"
	}
	header := styles.DiffHeader.Render(h.Path) + " " + styles.Muted.Render("("+side+")")
	if h.Empty() {
		return header + "\n" + styles.Muted.Render("No changes.") + "\n"
	}

	panelW := (totalWidth - 3) / 2 // 3 for the separator
	if panelW < 20 {
		panelW = 20
	}
	sep := lipgloss.NewStyle().Foreground(styles.Theme.Border).Render(" │ ")

	var b strings.Builder
	b.WriteString(header + "\n")
	n := max(len(h.OldLines), len(h.NewLines))
	for i := 0; i < n; i++ {
		left, right := "", ""
		if i < len(h.OldLines) {
			left = styles.DiffRemoved.Render(Truncate(h.OldLines[i], panelW))
		}
		if i < len(h.NewLines) {
			right = styles.DiffAdded.Render(Truncate(h.NewLines[i], panelW))
		}
		b.WriteString(PadRight(left, panelW) + sep + right + "\n")
	}
	return b.String()
}

// RenderError renders a failure with its kind and the action it implies,
// wrapped to width.
func RenderError(styles Styles, err error, width int) string {
	var se *syncerr.SyncError
	if !errors.As(err, &se) {
		se = syncerr.Classify("", err)
	}
	inner := max(width-4, 20) // border and padding
	lines := []string{
		styles.ErrorTitle.Render(se.Kind.String()),
		wrap.String(se.Error(), inner),
	}
	if action := se.Kind.Action(); action != "" {
		lines = append(lines, styles.Hint.Render(wrap.String(action, inner)))
	}
	return styles.ErrorBox.Render(strings.Join(lines, "\n")) + "\n"
}

// RenderCommit renders a commit summary.
func RenderCommit(styles Styles, res git.CommitResult) string {
	root := ""
	if res.RootCommit {
		root = styles.Muted.Render("(root commit)")
	}
	return JoinNonEmpty(" ",
		styles.Success.Render("Committed"),
		styles.CommitHash.Render(res.Hash),
		"on", styles.BranchName.Render(res.Branch), root,
	) + "\n" + styles.Muted.Render(fmt.Sprintf("%d file(s) changed, %d insertion(s), %d deletion(s)",
		res.Changes, res.Insertions, res.Deletions)) + "\n"
}

// RenderPush renders the outcome of push or publish.
func RenderPush(styles Styles, out reposync.PushOutcome) string {
	if out.Published {
		return styles.Success.Render("Published") + " " + styles.BranchName.Render(out.Branch) +
			styles.Muted.Render(" and set its upstream") + "\n"
	}
	return styles.Success.Render("Pushed") + " " + strconv.Itoa(out.Commits) + " commit(s) on " +
		styles.BranchName.Render(out.Branch) + "\n"
}

// RenderLink renders a completed link, including a failed upstream step.
func RenderLink(styles Styles, res reposync.LinkResult, width int) string {
	var b strings.Builder
	if res.Repo != nil {
		b.WriteString(styles.Success.Render("Created") + " " + styles.Bold.Render(res.Repo.FullName) + "\n")
	}
	b.WriteString(styles.Success.Render("Linked") + " " + styles.RemoteName.Render(res.Remote) + " " +
		styles.Muted.Render(res.URL) + "\n")
	if res.UpstreamErr != nil {
		b.WriteString(styles.Warning.Render("Upstream not set: ") +
			wrap.String(res.UpstreamErr.Message, max(width-18, 20)) + "\n")
		b.WriteString(styles.Hint.Render("Push to publish the branch and set its upstream.") + "\n")
	}
	return b.String()
}

// RenderRepos renders hosted repositories, one per line.
func RenderRepos(styles Styles, repos []hosting.RepoDescriptor, width int) string {
	if len(repos) == 0 {
		return styles.Muted.Render("No repositories.") + "\n"
	}
	nameW := 0
	for _, r := range repos {
		nameW = max(nameW, lipgloss.Width(r.FullName))
	}
	nameW = min(nameW, max(width/2, 20))

	var b strings.Builder
	for _, r := range repos {
		vis := styles.Muted.Render("public ")
		if r.Private {
			vis = styles.Warning.Render("private")
		}
		b.WriteString(PadRight(styles.Bold.Render(Truncate(r.FullName, nameW)), nameW) + "  " + vis + "  " +
			styles.Muted.Render(r.CloneURL) + "\n")
	}
	return b.String()
}
