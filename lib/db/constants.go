package db

const DocumentDoesNotExistError = "document not found"
const CommentNotFoundError = "comment not found"
