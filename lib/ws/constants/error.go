package constants

const ErrorInvalidMessage = "invalid message"
const ErrorInvalidPayload = "invalid payload"
const ErrorUnknownEvent = "unknown event"
const ErrorRateLimited = "rate limit exceeded"
const ErrorJoiningDocument = "error joining document"
