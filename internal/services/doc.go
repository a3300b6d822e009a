// Package services wraps the video hosting API behind the [VideoService] interface.
//
// # YouTube Implementation
//
// [YouTubeService] uses the generated YouTube Data API v3 client. Every request goes
// through an [oauth2.Transport] drawing from the account's token source, so a stale
// access token is refreshed before the request that needs it and never earlier.
//
// Uploads use the resumable protocol: the client opens a session and sends the asset in
// chunks of the configured size, reporting progress after each chunk. Assets that fit in a
// single chunk are sent as one multipart request.
//
// # Thumbnails
//
// [ThumbnailFetcher] downloads the image with separate connect and read bounds.
// [CheckImage] accepts JPEG, PNG, GIF and BMP up to 2 MiB by inspecting the leading bytes.
// [ThumbnailUploader] sequences fetch, check and set. A missing or empty image is
// [ErrThumbnailSkipped]; every other failure wraps [shared.ErrThumbnail].
//
// # Error Handling
//
// Services wrap API failures with sentinels from the shared package:
//   - [shared.ErrInvalidAsset] : asset rejected before upload
//   - [shared.ErrUpload] : insert call failed
//   - [shared.ErrThumbnail] : thumbnail fetch, check or set failed
//   - [shared.ErrAPIRequest] : metadata call failed
//   - [shared.ErrNotFound] : video does not exist
package services
