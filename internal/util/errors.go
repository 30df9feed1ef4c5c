package util

import "errors"

var (
	ErrQuestionnaireNotOpen   = errors.New("questionnaire is not accepting responses")
	ErrSchemaInvalid          = errors.New("questionnaire schema is invalid")
	ErrResponseAlreadyClosed  = errors.New("response already submitted or abandoned")
	ErrQuestionNotFound       = errors.New("question not found")
	ErrQuestionNotAnswerable  = errors.New("question is hidden or skipped for this response")
	ErrQuestionNotFileUpload  = errors.New("question does not accept file uploads")
	ErrAnswerInvalid          = errors.New("answer failed validation")
	ErrRequiredAnswersMissing = errors.New("required questions are unanswered")
)
