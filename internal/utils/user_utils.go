package utils

import (
	"errors"
	"strings"

	"github.com/steveiliop56/tinyoauth/internal/config"
)

func ParseUsers(users []string) ([]config.User, error) {
	usersParsed := make([]config.User, 0)

	for _, user := range users {
		if strings.TrimSpace(user) == "" {
			continue
		}
		parsed, err := ParseUser(strings.TrimSpace(user))
		if err != nil {
			return []config.User{}, err
		}
		usersParsed = append(usersParsed, parsed)
	}

	return usersParsed, nil
}

func GetUsers(conf []string, file string) ([]config.User, error) {
	users := make([]string, 0, len(conf))
	users = append(users, conf...)

	if file != "" {
		contents, err := ReadFile(file)
		if err != nil {
			return []config.User{}, err
		}
		for line := range strings.SplitSeq(ParseFileToLine(contents), ",") {
			users = append(users, line)
		}
	}

	return ParseUsers(users)
}

func ParseUser(user string) (config.User, error) {
	if strings.Contains(user, "$$") {
		user = strings.ReplaceAll(user, "$$", "$")
	}

	userSplit := strings.Split(user, ":")

	if len(userSplit) < 2 || len(userSplit) > 3 {
		return config.User{}, errors.New("invalid user format")
	}

	for _, userPart := range userSplit {
		if strings.TrimSpace(userPart) == "" {
			return config.User{}, errors.New("invalid user format")
		}
	}

	if len(userSplit) == 2 {
		return config.User{
			Username: strings.TrimSpace(userSplit[0]),
			Password: strings.TrimSpace(userSplit[1]),
		}, nil
	}

	return config.User{
		Username:   strings.TrimSpace(userSplit[0]),
		Password:   strings.TrimSpace(userSplit[1]),
		TotpSecret: strings.TrimSpace(userSplit[2]),
	}, nil
}
