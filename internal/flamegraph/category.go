package flamegraph

// Category groups related syscalls in the flame graph.
type Category string

const (
	CategoryFile    Category = "file"
	CategoryNetwork Category = "network"
	CategoryMemory  Category = "memory"
	CategoryProcess Category = "process"
	CategoryEvent   Category = "event"
	CategoryTime    Category = "time"
	CategoryIPC     Category = "ipc"
	CategoryOther   Category = "other"
)

var categories = map[string]Category{}

func init() {
	groups := map[Category][]string{
		CategoryFile: {
			"read", "write", "pread", "pwrite", "pread64", "pwrite64", "readv", "writev",
			"open", "openat", "open_nocancel", "close", "close_nocancel", "creat",
			"stat", "fstat", "lstat", "stat64", "fstat64", "lstat64", "fstatat", "fstatat64",
			"newfstatat", "statx", "statfs", "fstatfs", "statfs64", "fstatfs64",
			"access", "faccessat", "getattrlist", "getattrlistbulk", "setattrlist",
			"readlink", "readlinkat", "lseek", "fsync", "fdatasync", "fcntl", "ioctl",
			"getdirentries", "getdirentries64", "getdents", "getdents64",
			"mkdir", "mkdirat", "rmdir", "unlink", "unlinkat", "rename", "renameat",
			"chmod", "fchmod", "chown", "fchown", "truncate", "ftruncate", "dup", "dup2",
			"flock", "getxattr", "fgetxattr", "listxattr", "flistxattr",
		},
		CategoryNetwork: {
			"socket", "connect", "bind", "listen", "accept", "accept4",
			"send", "recv", "sendto", "recvfrom", "sendmsg", "recvmsg",
			"sendmmsg", "recvmmsg", "shutdown", "getsockopt", "setsockopt",
			"getsockname", "getpeername", "socketpair",
		},
		CategoryMemory: {
			"mmap", "munmap", "mprotect", "madvise", "brk", "mremap", "mlock", "munlock",
			"minherit", "msync", "mincore",
		},
		CategoryProcess: {
			"fork", "vfork", "clone", "clone3", "execve", "posix_spawn", "exit", "exit_group",
			"wait4", "waitid", "kill", "getpid", "getppid", "gettid", "thread_selfid",
			"bsdthread_create", "bsdthread_terminate", "proc_info", "sysctl", "sysctlbyname",
			"prctl", "getrlimit", "setrlimit", "getrusage",
		},
		CategoryEvent: {
			"poll", "ppoll", "select", "pselect", "pselect6", "kevent", "kevent64", "kevent_qos",
			"kevent_id", "kqueue", "epoll_create", "epoll_create1", "epoll_ctl", "epoll_wait",
			"epoll_pwait", "eventfd", "eventfd2", "inotify_add_watch", "inotify_rm_watch",
			"workq_kernreturn",
		},
		CategoryTime: {
			"gettimeofday", "clock_gettime", "clock_nanosleep", "nanosleep", "setitimer",
			"getitimer", "timerfd_create", "timerfd_settime", "mach_absolute_time",
		},
		CategoryIPC: {
			"pipe", "pipe2", "futex", "mach_msg", "mach_msg_trap", "mach_msg2_trap",
			"psynch_cvwait", "psynch_cvsignal", "psynch_cvbroad", "psynch_mutexwait",
			"psynch_mutexdrop", "ulock_wait", "ulock_wait2", "ulock_wake", "semop", "semget",
			"shmget", "shmat", "msgsnd", "msgrcv",
		},
	}
	for cat, names := range groups {
		for _, name := range names {
			categories[name] = cat
		}
	}
}

// CategoryOf returns the category of a syscall name.
func CategoryOf(syscall string) Category {
	if c, ok := categories[syscall]; ok {
		return c
	}
	return CategoryOther
}
