package normalizer

import "errors"

var ErrMissingQuery = errors.New("query or file is required")

const fileInstruction = " Based on this information, please answer the query: "

// Normalize 는 하위 단계로 보낼 단일 질의 문자열을 만든다.
// 파일 조각이 없으면 query 를 그대로 돌려준다.
func Normalize(query, fragment string) (string, error) {
	// 공백만 있는 질의도 사용자가 보낸 값이므로 그대로 통과시킨다.
	if query == "" && fragment == "" {
		return "", ErrMissingQuery
	}
	if fragment == "" {
		return query, nil
	}
	return fragment + fileInstruction + query, nil
}
