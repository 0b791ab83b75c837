package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/xattr"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/util"
	"golang.org/x/sys/unix"
)

const queueDirHashLength = 8
const xattrOutputID = "user.slogshipperOutputID"

func makeQueueDir(parentLogger logger.Logger, rootPath string, outputID string) (string, error) {
	dirname := sanitizeDirName(outputID)
	if dirname != outputID {
		parentLogger.Warnf("unclean output ID as dirname: '%s'", outputID)
	}
	// if output ID is not the same after sanitization, it would still get unique dir due to hash
	hash := util.MD5ToHexdigest(outputID)
	path := filepath.Join(rootPath, dirname+"."+hash[len(hash)-queueDirHashLength:])
	if derr := os.MkdirAll(path, 0o755); derr != nil {
		return "", fmt.Errorf("failed to create queue dir '%s': %w", path, derr)
	}
	if xerr := xattr.Set(path, xattrOutputID, []byte(outputID)); xerr != nil {
		parentLogger.Warnf("error labelling id on queue dir path='%s': %s", path, xerr.Error())
	}
	return path, nil
}

func listQueueOutputIDs(parentLogger logger.Logger, rootPath string) []string {
	parentLogger.Infof("scan root dir: %s", rootPath)
	rootDir, oerr := os.Open(rootPath)
	if oerr != nil {
		if !os.IsNotExist(oerr) {
			parentLogger.Errorf("error opening root dir: %s", oerr.Error())
		}
		return nil
	}
	defer rootDir.Close()

	entryNames, rerr := rootDir.Readdirnames(0)
	if rerr != nil {
		parentLogger.Errorf("error scanning root dir: %s", rerr.Error())
		return nil
	}
	sort.Strings(entryNames)

	idList := make([]string, 0, len(entryNames))
	for _, name := range entryNames {
		path := filepath.Join(rootPath, name)

		stat, serr := util.StatFileAt(rootDir, name)
		if serr != nil {
			parentLogger.Errorf("error stating entry path='%s': %s", path, serr.Error())
			continue
		}
		if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
			continue
		}

		idBytes, xerr := xattr.Get(path, xattrOutputID)
		if xerr != nil {
			parentLogger.Warnf("ignore queue dir without id, path='%s': %s", path, xerr.Error())
			continue
		}
		if len(idBytes) == 0 {
			parentLogger.Warnf("ignore queue dir with empty id, path='%s'", path)
			continue
		}
		idList = append(idList, string(idBytes))
	}
	return idList
}

func sanitizeDirName(name string) string {
	result := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch c {
		case 0, '/':
			c = '_'
		}
		result[i] = c
	}
	return string(result)
}
