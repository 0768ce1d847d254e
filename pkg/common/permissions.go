package common

import (
	"os"
	"os/user"
	"strconv"
)

const unknownName = "Unknown"

// PermissionMask keeps the permission, setuid, setgid and sticky bits of a stat mode.
const PermissionMask = 07777

// FileMode converts stored permission bits into an os.FileMode.
func FileMode(perm uint32) os.FileMode {
	mode := os.FileMode(perm & 0777)
	if perm&04000 != 0 {
		mode |= os.ModeSetuid
	}
	if perm&02000 != 0 {
		mode |= os.ModeSetgid
	}
	if perm&01000 != 0 {
		mode |= os.ModeSticky
	}
	return mode
}

// FormatPermissions renders mode bits as a ten-character string such as "drwxr-xr-x".
func FormatPermissions(kind EntryKind, perm uint32) string {
	const rwx = "rwxrwxrwx"

	buf := []byte("----------")
	if kind == DirectoryEntry {
		buf[0] = 'd'
	}
	for i := 0; i < 9; i++ {
		if perm&(1<<uint(8-i)) != 0 {
			buf[i+1] = rwx[i]
		}
	}
	return string(buf)
}

// LookupOwner resolves a numeric user id, falling back to "Unknown".
func LookupOwner(uid uint32) string {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return unknownName
	}
	return u.Username
}

// LookupGroup resolves a numeric group id, falling back to "Unknown".
func LookupGroup(gid uint32) string {
	g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10))
	if err != nil {
		return unknownName
	}
	return g.Name
}
