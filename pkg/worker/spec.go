package worker

import (
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// SysUser is the invoking host user whose uid/gid is mapped to the
// in-container root.
type SysUser struct {
	UID uint32
	GID uint32
}

// BuildRootlessSpec produces an OCI runtime spec for a rootless
// container: the platform default namespaces with network and user
// namespaces removed and a fresh user namespace appended, a single
// uid/gid mapping to sysUser, a restricted mount set with /sys replaced
// by a read-only rbind and uid=/gid= options stripped elsewhere, and a
// process that execs the handler's bootstrap entrypoint.
func BuildRootlessSpec(sysUser SysUser) *specs.Spec {
	spec := defaultSpec()

	namespaces := make([]specs.LinuxNamespace, 0, len(defaultNamespaces()))
	for _, ns := range defaultNamespaces() {
		if ns.Type == specs.NetworkNamespace || ns.Type == specs.UserNamespace {
			continue
		}
		namespaces = append(namespaces, ns)
	}
	namespaces = append(namespaces, specs.LinuxNamespace{Type: specs.UserNamespace})

	mounts := rootlessMounts()

	spec.Linux.Namespaces = namespaces
	spec.Linux.UIDMappings = []specs.LinuxIDMapping{
		{HostID: sysUser.UID, ContainerID: 0, Size: 1},
	}
	spec.Linux.GIDMappings = []specs.LinuxIDMapping{
		{HostID: sysUser.GID, ContainerID: 0, Size: 1},
	}
	spec.Mounts = mounts
	spec.Root = &specs.Root{Path: "rootfs", Readonly: false}
	spec.Process.Args = []string{"/app/bootstrap"}
	// no custom env injection: the handler discovers its socket path
	// from its bundle layout, not from the environment.

	return spec
}

// rootlessMounts starts from the platform default mount list, replaces
// the /sys mount with a read-only rbind of the host /sys, and strips any
// uid=/gid= option from every other mount (they would reference
// identities outside the single-entry mapped range above).
func rootlessMounts() []specs.Mount {
	defaults := defaultMounts()
	mounts := make([]specs.Mount, 0, len(defaults))

	for _, m := range defaults {
		if m.Destination == "/sys" {
			mounts = append(mounts, specs.Mount{
				Destination: "/sys",
				Type:        "none",
				Source:      "/sys",
				Options:     []string{"rbind", "nosuid", "noexec", "nodev", "ro"},
			})
			continue
		}

		opts := make([]string, 0, len(m.Options))
		for _, o := range m.Options {
			if strings.HasPrefix(o, "uid=") || strings.HasPrefix(o, "gid=") {
				continue
			}
			opts = append(opts, o)
		}
		m.Options = opts
		mounts = append(mounts, m)
	}

	return mounts
}

// defaultNamespaces mirrors the platform default namespace set: PID,
// network, IPC, UTS and mount.
func defaultNamespaces() []specs.LinuxNamespace {
	return []specs.LinuxNamespace{
		{Type: specs.PIDNamespace},
		{Type: specs.NetworkNamespace},
		{Type: specs.IPCNamespace},
		{Type: specs.UTSNamespace},
		{Type: specs.MountNamespace},
	}
}

// defaultMounts mirrors the platform default rootless mount list.
func defaultMounts() []specs.Mount {
	return []specs.Mount{
		{
			Destination: "/proc",
			Type:        "proc",
			Source:      "proc",
			Options:     []string{"nosuid", "noexec", "nodev"},
		},
		{
			Destination: "/dev",
			Type:        "tmpfs",
			Source:      "tmpfs",
			Options:     []string{"nosuid", "strictatime", "mode=755", "size=65536k"},
		},
		{
			Destination: "/dev/pts",
			Type:        "devpts",
			Source:      "devpts",
			Options:     []string{"nosuid", "noexec", "newinstance", "ptmxmode=0666", "mode=0620"},
		},
		{
			Destination: "/dev/shm",
			Type:        "tmpfs",
			Source:      "shm",
			Options:     []string{"nosuid", "noexec", "nodev", "mode=1777", "size=65536k"},
		},
		{
			Destination: "/dev/mqueue",
			Type:        "mqueue",
			Source:      "mqueue",
			Options:     []string{"nosuid", "noexec", "nodev"},
		},
		{
			Destination: "/sys",
			Type:        "sysfs",
			Source:      "sysfs",
			Options:     []string{"nosuid", "noexec", "nodev", "ro"},
		},
		{
			Destination: "/sys/fs/cgroup",
			Type:        "cgroup",
			Source:      "cgroup",
			Options:     []string{"nosuid", "noexec", "nodev", "relatime", "ro"},
		},
	}
}

func defaultCapabilities() []string {
	return []string{
		"CAP_CHOWN",
		"CAP_DAC_OVERRIDE",
		"CAP_FSETID",
		"CAP_FOWNER",
		"CAP_MKNOD",
		"CAP_NET_RAW",
		"CAP_SETGID",
		"CAP_SETUID",
		"CAP_SETFCAP",
		"CAP_SETPCAP",
		"CAP_NET_BIND_SERVICE",
		"CAP_SYS_CHROOT",
		"CAP_KILL",
		"CAP_AUDIT_WRITE",
	}
}

func defaultSpec() *specs.Spec {
	caps := defaultCapabilities()
	return &specs.Spec{
		Version: "1.1.0",
		Root:    &specs.Root{Path: "rootfs", Readonly: false},
		Process: &specs.Process{
			Terminal: false,
			User:     specs.User{UID: 0, GID: 0},
			Args:     []string{"/app/bootstrap"},
			Cwd:      "/",
			Env: []string{
				"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
			},
			NoNewPrivileges: true,
			Capabilities: &specs.LinuxCapabilities{
				Bounding:  caps,
				Effective: caps,
				Permitted: caps,
			},
			Rlimits: []specs.POSIXRlimit{
				{Type: "RLIMIT_NOFILE", Hard: 1024, Soft: 1024},
			},
		},
		Hostname: "noctiforge-handler",
		Mounts:   defaultMounts(),
		Linux: &specs.Linux{
			Namespaces: defaultNamespaces(),
			MaskedPaths: []string{
				"/proc/acpi",
				"/proc/asound",
				"/proc/kcore",
				"/proc/keys",
				"/proc/latency_stats",
				"/proc/timer_list",
				"/proc/timer_stats",
				"/proc/sched_debug",
				"/proc/scsi",
				"/sys/firmware",
			},
			ReadonlyPaths: []string{
				"/proc/bus",
				"/proc/fs",
				"/proc/irq",
				"/proc/sys",
				"/proc/sysrq-trigger",
			},
		},
	}
}
