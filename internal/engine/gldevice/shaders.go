package gldevice

// Alpha-tested basic effect. Vertex colors carry the per-mesh tint computed
// on the CPU; uDiffuse and uAlpha modulate the whole draw.
const effectVertexShader = `#version 410 core

layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec4 aColor;
layout(location = 2) in vec2 aTexCoord;

uniform mat4 uWorld;
uniform mat4 uView;
uniform mat4 uProjection;

out vec4 vColor;
out vec2 vTexCoord;

void main() {
    vColor = aColor;
    vTexCoord = aTexCoord;
    gl_Position = uProjection * uView * uWorld * vec4(aPosition, 1.0);
}
`

const effectFragmentShader = `#version 410 core

in vec4 vColor;
in vec2 vTexCoord;

uniform sampler2D uTexture;
uniform vec3 uDiffuse;
uniform float uAlpha;
uniform float uAlphaCutoff;

out vec4 FragColor;

void main() {
    vec4 tex = texture(uTexture, vTexCoord);
    if (tex.a < uAlphaCutoff) {
        discard;
    }
    vec4 color = tex * vColor;
    FragColor = vec4(color.rgb * uDiffuse, color.a * uAlpha);
}
`
