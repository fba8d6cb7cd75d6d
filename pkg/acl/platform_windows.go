//go:build windows

package acl

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/shareguard/shareguard/pkg/sid"
)

var (
	modadvapi32           = windows.NewLazySystemDLL("advapi32.dll")
	procGetAce            = modadvapi32.NewProc("GetAce")
	procGetAclInformation = modadvapi32.NewProc("GetAclInformation")
)

// aclSizeInformation mirrors ACL_SIZE_INFORMATION; aclSizeInformationClass
// (2) selects it in GetAclInformation.
type aclSizeInformation struct {
	AceCount      uint32
	AclBytesInUse uint32
	AclBytesFree  uint32
}

const aclSizeInformationClass = 2

func aclAceCount(acl *windows.ACL) (uint32, error) {
	var info aclSizeInformation
	r, _, err := procGetAclInformation.Call(
		uintptr(unsafe.Pointer(acl)),
		uintptr(unsafe.Pointer(&info)),
		unsafe.Sizeof(info),
		aclSizeInformationClass,
	)
	if r == 0 {
		return 0, err
	}
	return info.AceCount, nil
}

// aceHeader mirrors the Win32 ACE_HEADER struct: AceType, AceFlags,
// AceSize. It precedes every ACCESS_ALLOWED_ACE/ACCESS_DENIED_ACE body.
type aceHeader struct {
	AceType  byte
	AceFlags byte
	AceSize  uint16
}

const (
	accessAllowedAceType byte = 0
	accessDeniedAceType  byte = 1
	inheritedAce         byte = 0x10

	// accessMaskOffset is sizeof(ACE_HEADER) + sizeof(ACCESS_MASK); the
	// trustee SID begins immediately after, for both ALLOWED and DENIED
	// ACE bodies.
	accessMaskOffset = 8
)

func getAce(acl *windows.ACL, index uint32) (*aceHeader, error) {
	var pAce uintptr
	r, _, err := procGetAce.Call(
		uintptr(unsafe.Pointer(acl)),
		uintptr(index),
		uintptr(unsafe.Pointer(&pAce)),
	)
	if r == 0 {
		return nil, err
	}
	return (*aceHeader)(unsafe.Pointer(pAce)), nil
}

// WindowsDACLReader reads DACLs via GetNamedSecurityInfo.
type WindowsDACLReader struct{}

// NewWindowsDACLReader returns the production DACLReader for Windows hosts.
func NewWindowsDACLReader() *WindowsDACLReader {
	return &WindowsDACLReader{}
}

func (WindowsDACLReader) ReadDACL(path string) (*RawDACL, error) {
	sd, err := windows.GetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.OWNER_SECURITY_INFORMATION|windows.GROUP_SECURITY_INFORMATION|windows.DACL_SECURITY_INFORMATION,
	)
	if err != nil {
		return nil, fmt.Errorf("GetNamedSecurityInfo %s: %w", path, err)
	}

	owner, _, err := sd.Owner()
	if err != nil {
		return nil, fmt.Errorf("read owner for %s: %w", path, err)
	}
	group, _, err := sd.Group()
	if err != nil {
		return nil, fmt.Errorf("read primary group for %s: %w", path, err)
	}
	dacl, defaulted, err := sd.DACL()
	if err != nil {
		return nil, fmt.Errorf("read DACL for %s: %w", path, err)
	}
	_ = defaulted

	ownerSID, err := sidString(owner)
	if err != nil {
		return nil, fmt.Errorf("decode owner SID for %s: %w", path, err)
	}
	groupSID, err := sidString(group)
	if err != nil {
		return nil, fmt.Errorf("decode primary group SID for %s: %w", path, err)
	}

	raw := &RawDACL{
		OwnerSID:           ownerSID,
		PrimaryGroupSID:    groupSID,
		InheritanceEnabled: !protectedDACL(sd),
	}

	entries, err := explicitAccessFromACL(dacl)
	if err != nil {
		return nil, fmt.Errorf("decode DACL for %s: %w", path, err)
	}
	raw.ACEs = entries

	return raw, nil
}

func (WindowsDACLReader) ListSubdirectories(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, path+`\`+e.Name())
		}
	}
	return dirs, nil
}

// protectedDACL reports whether the security descriptor's DACL is
// protected (SE_DACL_PROTECTED), meaning inheritance from the parent is
// disabled.
func protectedDACL(sd *windows.SECURITY_DESCRIPTOR) bool {
	control, _, err := sd.Control()
	if err != nil {
		return false
	}
	return control&windows.SE_DACL_PROTECTED != 0
}

// sidString decodes a Win32 SID's in-memory MS-DTYP bytes through pkg/sid
// rather than round-tripping it through ConvertSidToStringSid, so every SID
// the scanner emits is formatted by the same codec the rest of ShareGuard
// uses to reason about SIDs.
func sidString(ptr *windows.SID) (string, error) {
	if ptr == nil {
		return "", fmt.Errorf("nil SID pointer")
	}
	header := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), 8)
	size := 8 + 4*int(header[1])
	raw := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)

	decoded, _, err := sid.DecodeSID(raw)
	if err != nil {
		return "", err
	}
	return sid.FormatSID(decoded), nil
}

// explicitAccessFromACL walks the raw ACL structure in platform order,
// translating each Windows ACCESS_MASK into ShareGuard's
// Basic/Advanced/Directory buckets. Order is preserved per §4.3.
func explicitAccessFromACL(acl *windows.ACL) ([]RawACE, error) {
	if acl == nil {
		return nil, nil
	}

	count, err := aclAceCount(acl)
	if err != nil {
		return nil, fmt.Errorf("GetAclInformation: %w", err)
	}

	out := make([]RawACE, 0, count)
	for i := uint32(0); i < count; i++ {
		hdr, err := getAce(acl, i)
		if err != nil {
			return nil, fmt.Errorf("GetAce(%d): %w", i, err)
		}

		var aceType ACEType
		switch hdr.AceType {
		case accessAllowedAceType:
			aceType = ACEAllow
		case accessDeniedAceType:
			aceType = ACEDeny
		default:
			continue // audit/object ACE types are not access-control entries
		}

		base := unsafe.Pointer(hdr)
		mask := *(*uint32)(unsafe.Pointer(uintptr(base) + unsafe.Sizeof(aceHeader{})))
		sidPtr := (*windows.SID)(unsafe.Pointer(uintptr(base) + accessMaskOffset))

		trusteeSID, err := sidString(sidPtr)
		if err != nil {
			return nil, fmt.Errorf("decode trustee SID at ACE %d: %w", i, err)
		}

		out = append(out, RawACE{
			TrusteeSID:  trusteeSID,
			Type:        aceType,
			Inherited:   hdr.AceFlags&inheritedAce != 0,
			Permissions: maskToPermissions(mask),
		})
	}
	return out, nil
}

// maskToPermissions translates a raw NTFS ACCESS_MASK into the three
// permission buckets the portable scan pipeline operates on.
func maskToPermissions(mask uint32) PermissionSet {
	p := NewPermissionSet()

	const (
		genericAll     = 0x10000000
		genericRead    = 0x80000000
		genericWrite   = 0x40000000
		genericExecute = 0x20000000
		fileDelete     = 0x00010000
		readControl    = 0x00020000
		writeDAC       = 0x00040000
		writeOwner     = 0x00080000
		fileListDir    = 0x00000001
		fileAddFile    = 0x00000002
		fileAddSubdir  = 0x00000004
		fileReadEA     = 0x00000008
		fileWriteEA    = 0x00000010
		fileTraverse   = 0x00000020
		fileDeleteChld = 0x00000040
		fileReadAttr   = 0x00000080
		fileWriteAttr  = 0x00000100
	)

	switch {
	case mask&genericAll != 0:
		p.Basic.Add(RightFullControl)
	default:
		if mask&genericRead != 0 {
			p.Basic.Add(RightRead)
		}
		if mask&genericWrite != 0 {
			p.Basic.Add(RightWrite)
		}
		if mask&genericExecute != 0 {
			p.Basic.Add(RightExecute)
		}
	}

	if mask&fileDelete != 0 {
		p.Advanced.Add(RightDelete)
	}
	if mask&readControl != 0 {
		p.Advanced.Add(RightReadPermissions)
	}
	if mask&writeDAC != 0 {
		p.Advanced.Add(RightChangePermissions)
	}
	if mask&writeOwner != 0 {
		p.Advanced.Add(RightTakeOwnership)
	}

	if mask&fileListDir != 0 {
		p.Directory.Add(RightListFolder)
	}
	if mask&fileAddFile != 0 {
		p.Directory.Add(RightCreateFiles)
	}
	if mask&fileAddSubdir != 0 {
		p.Directory.Add(RightCreateFolders)
	}
	if mask&fileReadEA != 0 {
		p.Directory.Add(RightReadEA)
	}
	if mask&fileWriteEA != 0 {
		p.Directory.Add(RightWriteEA)
	}
	if mask&fileTraverse != 0 {
		p.Directory.Add(RightTraverse)
	}
	if mask&fileDeleteChld != 0 {
		p.Directory.Add(RightDeleteChild)
	}
	if mask&fileReadAttr != 0 {
		p.Directory.Add(RightReadAttributes)
	}
	if mask&fileWriteAttr != 0 {
		p.Directory.Add(RightWriteAttributes)
	}

	return p.Reduce()
}
