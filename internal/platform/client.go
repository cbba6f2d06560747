// Copyright 2023 bytetrade
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/go-resty/resty/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	CatalogGroupID    = "purchase-catalog.platform"
	ReceiptGroupID    = "purchase-receipt.platform"
	APIVersion        = "v1"
	AccessTokenHeader = "X-Access-Token"
)

// Client requests short-lived access tokens from the platform's permission
// endpoint. Tokens authenticate the catalog and receipt calls.
type Client struct {
	HttpClient *resty.Client

	server    string
	appKey    string
	appSecret string
}

func NewClient(server, appKey, appSecret string) *Client {
	c := resty.New()

	return &Client{
		HttpClient: c.SetTimeout(2 * time.Second),
		server:     server,
		appKey:     appKey,
		appSecret:  appSecret,
	}
}

// Enabled reports whether a platform server is configured. Without one the
// catalog and receipt clients send unauthenticated requests.
func (c *Client) Enabled() bool {
	return c.server != ""
}

// GetAccessToken obtains a token scoped to the given permission group.
func (c *Client) GetAccessToken(group, dataType string, ops []string) (string, error) {
	url := fmt.Sprintf("http://%s/permission/v1alpha1/access", c.server)
	now := time.Now().UnixMilli() / 1000

	password := c.appKey + strconv.Itoa(int(now)) + c.appSecret
	encode, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	perm := AccessTokenRequest{
		AppKey:    c.appKey,
		Timestamp: now,
		Token:     string(encode),
		Perm: PermissionRequire{
			Group:    group,
			Version:  APIVersion,
			DataType: dataType,
			Ops:      ops,
		},
	}

	postData, err := json.Marshal(perm)
	if err != nil {
		return "", err
	}

	resp, err := c.HttpClient.R().
		SetHeader(restful.HEADER_ContentType, restful.MIME_JSON).
		SetBody(postData).
		SetResult(&AccessTokenResp{}).
		Post(url)

	if err != nil {
		return "", err
	}

	if resp.StatusCode() != http.StatusOK {
		return "", errors.New(string(resp.Body()))
	}

	token := resp.Result().(*AccessTokenResp)

	if token.Code != 0 {
		return "", errors.New(token.Message)
	}

	return token.Data.AccessToken, nil
}
