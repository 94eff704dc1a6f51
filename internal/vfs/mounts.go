package vfs

import (
	"sort"
	"strings"

	sigar "github.com/cloudfoundry/gosigar"
)

// Mount is a mounted filesystem the folder prompt can suggest as a root.
type Mount struct {
	Dir   string
	Dev   string
	Type  string
	Total uint64 // bytes
	Avail uint64 // bytes
}

// virtualTypes never hold a video library.
var virtualTypes = map[string]bool{
	"proc": true, "sysfs": true, "devfs": true, "devtmpfs": true, "tmpfs": true,
	"cgroup": true, "cgroup2": true, "debugfs": true, "tracefs": true,
	"securityfs": true, "pstore": true, "bpf": true, "mqueue": true,
	"configfs": true, "fusectl": true, "autofs": true, "devpts": true,
	"hugetlbfs": true, "binfmt_misc": true, "overlay": true, "squashfs": true,
	"nsfs": true, "ramfs": true,
}

// ListMounts returns the mounted, non-virtual filesystems sorted by mount point.
func ListMounts() ([]Mount, error) {
	fsList := sigar.FileSystemList{}
	if err := fsList.Get(); err != nil {
		return nil, err
	}
	return filterMounts(fsList.List), nil
}

func filterMounts(list []sigar.FileSystem) []Mount {
	mounts := make([]Mount, 0, len(list))
	for _, fs := range list {
		kind := strings.ToLower(fs.SysTypeName)
		if virtualTypes[kind] || fs.DirName == "" {
			continue
		}
		usage := sigar.FileSystemUsage{}
		if err := usage.Get(fs.DirName); err != nil {
			continue
		}
		mounts = append(mounts, Mount{
			Dir:   fs.DirName,
			Dev:   fs.DevName,
			Type:  fs.SysTypeName,
			Total: usage.Total * 1024,
			Avail: usage.Avail * 1024,
		})
	}
	sort.Slice(mounts, func(i, j int) bool { return mounts[i].Dir < mounts[j].Dir })
	return mounts
}
