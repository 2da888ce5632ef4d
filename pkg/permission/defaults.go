package permission

// defaultAllow lists read-only repository operations permitted without any
// project configuration.
var defaultAllow = parsePatterns([]string{
	"ls", "cat", "grep", "find", "head", "tail", "pwd", "echo",
	"git:status", "git:log", "git:diff", "git:show", "git:branch", "git:tag",
	"git:remote", "git:blame", "git:rev-parse", "git:rev-list", "git:ls-files",
	"git:ls-tree", "git:cat-file", "git:for-each-ref", "git:merge-base",
	"git:describe", "git:config", "git:stash:list", "git:worktree:list",
	"git:notes:list", "git:notes:show",
	"gh:auth:status", "gh:*:list", "gh:*:view", "gh:search:*", "gh:api",
})

// defaultDeny lists mutating or dangerous operations denied unless a
// customAllow entry explicitly overrides the exact pattern.
var defaultDeny = parsePatterns([]string{
	"git:push", "git:commit", "git:reset", "git:clean", "git:rm", "git:merge",
	"git:rebase", "git:cherry-pick",
	"git:stash:drop", "git:stash:pop", "git:stash:clear", "git:stash:push",
	"git:branch:-d", "git:branch:-D", "git:branch:--delete",
	"git:tag:-d", "git:tag:--delete",
	"git:remote:remove", "git:remote:rm",
	"git:checkout:--force", "git:checkout:-f",
	"git:submodule:deinit",
	"git:worktree:remove", "git:worktree:add",
	"git:notes:add", "git:notes:remove",

	"gh:create", "gh:close", "gh:delete", "gh:edit", "gh:merge", "gh:reopen",
	"gh:review", "gh:comment", "gh:fork", "gh:rename", "gh:archive", "gh:clone",
	"gh:secret:set", "gh:variable:set", "gh:ssh-key:set", "gh:label:set",

	"rm", "sudo", "dd",
	"awk", "perl:-e", "python:-c", "node:-e",
	"find:-exec",
})
