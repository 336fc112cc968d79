package logging

import "github.com/sirupsen/logrus"

// BaseFields tags CLI log lines with the command and config file in use.
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// HandleFields describes an open cache handle.
func HandleFields(handleID, location, path, storage string) logrus.Fields {
	return logrus.Fields{
		"handle":   handleID,
		"location": location,
		"path":     path,
		"storage":  storage,
	}
}
