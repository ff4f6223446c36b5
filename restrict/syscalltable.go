// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package restrict

import (
	"sort"

	"github.com/bureau-foundation/lockdown/policy"
)

// promiseSyscalls maps each pledge promise to the Linux syscalls it
// covers. Seccomp filters on syscall numbers, not arguments, so the
// mapping is coarser than pledge(2): "rpath" and "wpath" both need
// openat, and the filter cannot tell a read-only open from a write.
// Landlock supplies the path side of that distinction.
//
// "stdio" also carries what the Go runtime itself needs at any moment:
// thread creation, signals, futexes, the netpoller. A process that
// cannot make these is not restricted, it is dead. seccomp and prctl
// are in "stdio" because pledge(2) can always narrow further.
//
// Names that do not exist on the running architecture (open, stat and
// friends on arm64) are skipped when the filter is built.
var promiseSyscalls = map[string][]string{
	"stdio": {
		"read", "readv", "pread64", "preadv", "preadv2",
		"write", "writev", "pwrite64", "pwritev", "pwritev2",
		"close", "close_range", "dup", "dup2", "dup3", "fcntl",
		"fstat", "fstatfs", "lseek", "_llseek", "ftruncate", "fsync", "fdatasync",
		"pipe", "pipe2", "socketpair",
		"recvfrom", "recvmsg", "recvmmsg", "sendto", "sendmsg", "sendmmsg",
		"shutdown", "getsockopt", "getsockname", "getpeername",
		"poll", "ppoll", "select", "pselect6",
		"epoll_create", "epoll_create1", "epoll_ctl", "epoll_wait", "epoll_pwait", "epoll_pwait2",
		"eventfd", "eventfd2",
		"brk", "mmap", "munmap", "mremap", "madvise", "mprotect", "mincore",
		"futex", "futex_waitv", "set_robust_list", "get_robust_list", "rseq", "set_tid_address",
		"clone", "clone3", "exit", "exit_group",
		"rt_sigaction", "rt_sigprocmask", "rt_sigreturn", "rt_sigpending",
		"rt_sigtimedwait", "rt_sigsuspend", "sigaltstack", "restart_syscall",
		"getpid", "getppid", "gettid", "tgkill", "tkill",
		"getuid", "geteuid", "getgid", "getegid", "getresuid", "getresgid", "getgroups",
		"getpgid", "getpgrp", "getsid",
		"clock_gettime", "clock_getres", "clock_nanosleep", "gettimeofday", "time",
		"nanosleep", "sched_yield", "sched_getaffinity",
		"getrlimit", "prlimit64", "getrusage", "uname", "sysinfo", "umask",
		"getrandom", "timerfd_create", "timerfd_settime", "timerfd_gettime",
		"prctl", "seccomp",
	},
	"rpath": {
		"open", "openat", "openat2", "stat", "lstat", "newfstatat", "fstatat64", "statx",
		"access", "faccessat", "faccessat2", "readlink", "readlinkat",
		"getdents", "getdents64", "getcwd", "chdir", "fchdir", "statfs",
	},
	"wpath": {
		"open", "openat", "openat2", "truncate", "getcwd",
	},
	"cpath": {
		"open", "openat", "openat2", "mkdir", "mkdirat", "rmdir", "unlink", "unlinkat",
		"rename", "renameat", "renameat2", "link", "linkat", "symlink", "symlinkat",
	},
	"dpath": {
		"mknod", "mknodat",
	},
	"tmppath": {
		"open", "openat", "lstat", "newfstatat", "unlink", "unlinkat",
	},
	"inet": {
		"socket", "connect", "bind", "listen", "accept", "accept4", "setsockopt",
	},
	"mcast": {
		"setsockopt",
	},
	"unix": {
		"socket", "connect", "bind", "listen", "accept", "accept4", "setsockopt",
	},
	"dns": {
		"socket", "connect", "bind",
	},
	"fattr": {
		"chmod", "fchmod", "fchmodat", "utimes", "utimensat", "futimesat",
	},
	"chown": {
		"chown", "fchown", "fchownat", "lchown",
	},
	"flock": {
		"flock",
	},
	"getpw": {
		"open", "openat",
	},
	"sendfd": {},
	"recvfd": {},
	"tape":   {"ioctl"},
	"tty":    {"ioctl"},
	"proc": {
		"fork", "vfork", "kill", "setpgid", "setsid", "wait4", "waitid",
		"pidfd_open", "pidfd_send_signal", "pidfd_getfd",
		"setpriority", "getpriority", "sched_setaffinity",
	},
	"exec": {
		"execve", "execveat",
		// A new image sets its thread pointer before anything else.
		"arch_prctl",
	},
	"prot_exec": {
		"mmap", "mprotect",
	},
	"settime": {
		"settimeofday", "clock_settime", "clock_adjtime", "adjtimex",
	},
	"ps":     {"sysinfo"},
	"vminfo": {"sysinfo"},
	"id": {
		"setuid", "setgid", "setreuid", "setregid", "setresuid", "setresgid",
		"setgroups", "setfsuid", "setfsgid", "capset", "setrlimit",
	},
	"pf":     {"ioctl"},
	"route":  {"socket"},
	"wroute": {"socket"},
	"audio":  {"ioctl"},
	"video":  {"ioctl"},
	"bpf":    {"bpf"},
	"unveil": {
		"landlock_create_ruleset", "landlock_add_rule", "landlock_restrict_self",
	},
	"error": {},
}

// SyscallsFor returns the sorted, de-duplicated syscall names covered
// by promises. Unknown promises contribute nothing; validate first.
func SyscallsFor(promises policy.Promises) []string {
	seen := make(map[string]bool)
	for _, promise := range promises {
		for _, name := range promiseSyscalls[promise] {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
